package entity

import (
	"net/http"
	"strings"
	"time"

	"memorymount/lib/validate"
)

// CodeState is the lifecycle position of a memory code.
// Assignment and claim are recorded as independent timestamps;
// the state is derived, never stored.
type CodeState string

const (
	StateMinted   CodeState = "minted"   // created, not yet on a product
	StateAssigned CodeState = "assigned" // affixed to a product by an admin
	StateClaimed  CodeState = "claimed"  // bound to a user account
)

// MemoryCode is a 6-character redemption token bound to one trophy
// folder id. Minted in bulk by admins, mutated at most twice: once by
// "assign to product" and once by an end-user claim. Never deleted.
type MemoryCode struct {
	Id         string     `json:"id" bson:"_id"`
	Code       string     `json:"code" bson:"code"`
	UserId     string     `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Name       string     `json:"name,omitempty" bson:"name,omitempty"`
	CreatedBy  string     `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
	AssignedAt *time.Time `json:"assigned_at,omitempty" bson:"assigned_at,omitempty"`
	UsedAt     *time.Time `json:"used_at,omitempty" bson:"used_at,omitempty"`
}

func (c *MemoryCode) Assigned() bool {
	return c.AssignedAt != nil
}

func (c *MemoryCode) Claimed() bool {
	return c.UserId != "" && c.UsedAt != nil
}

// State derives the lifecycle position. A claimed code reports
// StateClaimed even when it was never assigned to a product.
func (c *MemoryCode) State() CodeState {
	if c.Claimed() {
		return StateClaimed
	}
	if c.Assigned() {
		return StateAssigned
	}
	return StateMinted
}

// NormalizeCode folds a human-entered redemption token to its stored
// form. Codes are case-insensitive on input, uppercase at rest.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ClaimRequest binds an end-user claim call.
type ClaimRequest struct {
	MemoryId string `json:"memory_id" validate:"required"`
	Code     string `json:"code" validate:"required,min=6,max=6"`
}

func (c *ClaimRequest) Bind(_ *http.Request) error {
	c.Code = NormalizeCode(c.Code)
	return validate.Struct(c)
}

// GenerateRequest binds an admin bulk-mint call.
type GenerateRequest struct {
	Count int `json:"count" validate:"required,min=1,max=1000"`
}

func (g *GenerateRequest) Bind(_ *http.Request) error {
	return validate.Struct(g)
}

// NameRequest binds a post-upload display-name update.
type NameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

func (n *NameRequest) Bind(_ *http.Request) error {
	return validate.Struct(n)
}

// CodeStats is the admin console counters view.
type CodeStats struct {
	Total     int64 `json:"total"`
	Assigned  int64 `json:"assigned"`
	Claimed   int64 `json:"claimed"`
	Available int64 `json:"available"`
}

// Ownership is the projection returned by ownership checks: only the
// claim fields, never the code itself.
type Ownership struct {
	Verified bool   `json:"verified"`
	UserId   string `json:"user_id,omitempty"`
}
