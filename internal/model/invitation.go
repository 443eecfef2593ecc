package model

import (
	"time"

	"github.com/google/uuid"
)

// InvitationStatus is the lifecycle state of an invitation.
//
// STATE MACHINE:
//
//	pending --accept--> accepted   (creates a ResourceAccess grant)
//	pending --decline--> declined
//	pending --(older than TTL)--> expired
//
// Accept and decline are only legal from "pending". Expiry is evaluated
// lazily by comparing CreatedAt against a policy TTL — there is no
// background sweeper flipping rows to "expired".
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation is a pending or resolved offer of a role on a resource.
//
// ReceiverID is a pointer because the receiver may not exist yet: inviting
// by email leaves ReceiverID nil until the invitee registers, at which point
// pending invitations addressed to that email are attached to the new account.
type Invitation struct {
	ID            uuid.UUID        `json:"id"`
	SenderID      int64            `json:"senderId"`
	ReceiverID    *int64           `json:"receiverId,omitempty"`
	ReceiverEmail string           `json:"receiverEmail,omitempty"`
	ResourceType  string           `json:"resourceType"`
	ResourceID    uuid.UUID        `json:"resourceId"`
	Role          Role             `json:"role"`
	Status        InvitationStatus `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// EffectiveStatus returns the status with lazy expiry applied: a pending
// invitation older than ttl reads as expired.
func (i *Invitation) EffectiveStatus(ttl time.Duration, now time.Time) InvitationStatus {
	if i.Status == InvitationPending && now.Sub(i.CreatedAt) > ttl {
		return InvitationExpired
	}
	return i.Status
}
