package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/repository"
)

// AccessService is the authorization gate: every protected operation in the
// other services funnels through RequireAdmin or RequireRole here, and the
// invitation lifecycle that produces new grants lives here too.
//
// The gate holds no state between requests. Each check re-reads the grant
// table, so a revoked grant is gone for the very next request — there is
// nothing to invalidate.
type AccessService struct {
	access    repository.AccessRepository
	invites   repository.InvitationRepository
	users     repository.UserRepository
	projects  repository.ProjectRepository
	documents repository.DocumentRepository
	inviteTTL time.Duration
	logger    *slog.Logger
}

// NewAccessService creates the gate. inviteTTL bounds how long an
// invitation stays acceptable (lazy expiry, no background sweep).
func NewAccessService(
	access repository.AccessRepository,
	invites repository.InvitationRepository,
	users repository.UserRepository,
	projects repository.ProjectRepository,
	documents repository.DocumentRepository,
	inviteTTL time.Duration,
	logger *slog.Logger,
) *AccessService {
	return &AccessService{
		access:    access,
		invites:   invites,
		users:     users,
		projects:  projects,
		documents: documents,
		inviteTTL: inviteTTL,
		logger:    logger,
	}
}

// RequireAdmin passes only for accounts holding the admin privilege.
// The error is the same regardless of what was attempted.
func (s *AccessService) RequireAdmin(user *model.User) error {
	if user == nil || !user.IsAdmin() {
		return apperror.Forbidden("admin privilege required")
	}
	return nil
}

// RequireRole checks that user holds at least min on the given resource.
//
// TWO SOURCES OF PERMISSION, ONE DERIVED:
//  1. Creator-as-owner: the resource's creator is its owner. This is
//     computed here from the resource row itself, NOT stored as a grant —
//     storing it would make the grant table a second source of truth for
//     ownership that could drift.
//  2. An explicit ResourceAccess grant whose role meets min.
//
// Anything else is Forbidden, with a message that does not explain which
// part failed. A resource that does not exist gets the same Forbidden as one
// the caller cannot see — a 404 next to a 403 would let anyone probe which
// IDs exist.
func (s *AccessService) RequireRole(ctx context.Context, user *model.User, resourceType string, resourceID uuid.UUID, min model.Role) error {
	creatorID, err := s.creatorOf(ctx, resourceType, resourceID)
	if err != nil {
		return hideExistence(err)
	}
	if creatorID == user.ID {
		return nil
	}

	grant, err := s.access.Find(ctx, user.ID, resourceType, resourceID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.Forbidden("insufficient permissions")
		}
		return fmt.Errorf("service/access: finding grant: %w", err)
	}
	if !grant.Role.Meets(min) {
		return apperror.Forbidden("insufficient permissions")
	}
	return nil
}

// hideExistence maps a missing shareable resource onto the same error an
// unauthorized caller gets, so the two cases cannot be told apart from
// outside. Everything else passes through unchanged.
func hideExistence(err error) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.Forbidden("insufficient permissions")
	}
	return err
}

// creatorOf resolves the creator of a shareable resource. Unknown types are
// a programming error surfaced as validation; a missing resource propagates
// as not found and is collapsed into Forbidden by the callers.
func (s *AccessService) creatorOf(ctx context.Context, resourceType string, resourceID uuid.UUID) (int64, error) {
	switch resourceType {
	case model.ResourceProject:
		proj, err := s.projects.GetByID(ctx, resourceID)
		if err != nil {
			return 0, err
		}
		return proj.CreatedBy, nil
	case model.ResourceDocument:
		doc, err := s.documents.GetByID(ctx, resourceID)
		if err != nil {
			return 0, err
		}
		return doc.UserID, nil
	default:
		return 0, apperror.ValidationFailed("resourceType", "unknown resource type")
	}
}

// Grants lists the explicit grants on a resource. Viewer access is enough
// to see who else is on the resource.
func (s *AccessService) Grants(ctx context.Context, user *model.User, resourceType string, resourceID uuid.UUID) ([]model.ResourceAccess, error) {
	if err := s.RequireRole(ctx, user, resourceType, resourceID, model.RoleViewer); err != nil {
		return nil, err
	}
	grants, err := s.access.ListByResource(ctx, resourceType, resourceID)
	if err != nil {
		return nil, fmt.Errorf("service/access: listing grants: %w", err)
	}
	return grants, nil
}

// Revoke removes a user's grant on a resource. Owners can revoke anyone;
// everyone can revoke themselves (leaving a shared resource).
func (s *AccessService) Revoke(ctx context.Context, actor *model.User, targetUserID int64, resourceType string, resourceID uuid.UUID) error {
	if actor.ID != targetUserID {
		if err := s.RequireRole(ctx, actor, resourceType, resourceID, model.RoleOwner); err != nil {
			return err
		}
	}

	if err := s.access.Revoke(ctx, targetUserID, resourceType, resourceID); err != nil {
		return fmt.Errorf("service/access: revoking grant: %w", err)
	}

	s.logger.Info("grant revoked",
		slog.Int64("actorID", actor.ID),
		slog.Int64("targetID", targetUserID),
		slog.String("resourceType", resourceType),
		slog.String("resourceID", resourceID.String()),
	)
	return nil
}

// Invite offers a role on a resource to another user, addressed by email.
// Only the resource's owner may invite.
//
// The invitation is created whether or not the email belongs to a
// registered account — and the response looks identical either way, so the
// sender learns nothing about who has an account. If the account exists the
// invitation is bound to it immediately; otherwise it waits for the email
// to register.
func (s *AccessService) Invite(ctx context.Context, sender *model.User, receiverEmail, resourceType string, resourceID uuid.UUID, role model.Role) (*model.Invitation, error) {
	receiverEmail = strings.ToLower(strings.TrimSpace(receiverEmail))
	if receiverEmail == "" {
		return nil, apperror.ValidationFailed("receiverEmail", "receiver email is required")
	}
	if !role.Valid() {
		return nil, apperror.ValidationFailed("role", "role must be viewer, editor or owner")
	}
	if receiverEmail == sender.Email {
		return nil, apperror.ValidationFailed("receiverEmail", "cannot invite yourself")
	}

	if err := s.RequireRole(ctx, sender, resourceType, resourceID, model.RoleOwner); err != nil {
		return nil, err
	}

	inv := &model.Invitation{
		SenderID:      sender.ID,
		ReceiverEmail: receiverEmail,
		ResourceType:  resourceType,
		ResourceID:    resourceID,
		Role:          role,
		Status:        model.InvitationPending,
	}

	receiver, err := s.users.GetByEmail(ctx, receiverEmail)
	switch {
	case err == nil:
		inv.ReceiverID = &receiver.ID
	case errors.Is(err, apperror.ErrNotFound):
		// Invite-by-email: stays unbound until the invitee registers.
	default:
		return nil, fmt.Errorf("service/access: looking up receiver: %w", err)
	}

	if err := s.invites.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("service/access: creating invitation: %w", err)
	}

	s.logger.Info("invitation sent",
		slog.Int64("senderID", sender.ID),
		slog.String("resourceType", resourceType),
		slog.String("resourceID", resourceID.String()),
		slog.String("role", string(role)),
	)
	return inv, nil
}

// Invitations returns what the user sent and what is addressed to them,
// with lazy expiry applied to the statuses.
func (s *AccessService) Invitations(ctx context.Context, user *model.User) (sent, received []model.Invitation, err error) {
	now := time.Now()

	sent, err = s.invites.ListSent(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("service/access: listing sent invitations: %w", err)
	}
	received, err = s.invites.ListReceived(ctx, user.ID, user.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("service/access: listing received invitations: %w", err)
	}

	for i := range sent {
		sent[i].Status = sent[i].EffectiveStatus(s.inviteTTL, now)
	}
	for i := range received {
		received[i].Status = received[i].EffectiveStatus(s.inviteTTL, now)
	}
	return sent, received, nil
}

// Accept turns a pending invitation into a ResourceAccess grant.
//
// ORDER OF OPERATIONS UNDER RACE:
//  1. The guarded status flip (pending → accepted) is the serialization
//     point: of two concurrent accepts exactly one UPDATE matches, the
//     other gets InvalidState from the repository.
//  2. The grant insert can still conflict if the user somehow already has
//     a grant on the resource (e.g. two invitations for the same resource
//     both accepted). The unique triple index rejects the duplicate and the
//     caller sees ConflictingGrant — access is never double-granted, and
//     re-reading the current access state is the only recovery.
func (s *AccessService) Accept(ctx context.Context, user *model.User, invitationID uuid.UUID) (*model.ResourceAccess, error) {
	inv, err := s.resolveForAnswer(ctx, user, invitationID)
	if err != nil {
		return nil, err
	}

	if err := s.invites.Transition(ctx, invitationID, model.InvitationPending, model.InvitationAccepted); err != nil {
		return nil, fmt.Errorf("service/access: accepting invitation: %w", err)
	}

	grant := &model.ResourceAccess{
		UserID:       user.ID,
		ResourceType: inv.ResourceType,
		ResourceID:   inv.ResourceID,
		Role:         inv.Role,
	}
	if err := s.access.Grant(ctx, grant); err != nil {
		// A conflicting grant means the user already holds access and the
		// accepted status is truthful. Any other failure leaves an accepted
		// invitation with no grant behind it, so the status flip is undone
		// to keep the accept retryable.
		if !errors.Is(err, apperror.ErrConflict) {
			if rerr := s.invites.Transition(ctx, invitationID, model.InvitationAccepted, model.InvitationPending); rerr != nil {
				s.logger.Error("restoring invitation after failed grant",
					slog.String("invitationID", invitationID.String()),
					slog.String("error", rerr.Error()),
				)
			}
		}
		return nil, fmt.Errorf("service/access: granting access: %w", err)
	}

	s.logger.Info("invitation accepted",
		slog.Int64("userID", user.ID),
		slog.String("invitationID", invitationID.String()),
		slog.String("role", string(inv.Role)),
	)
	return grant, nil
}

// Decline marks a pending invitation declined. No grant is created.
func (s *AccessService) Decline(ctx context.Context, user *model.User, invitationID uuid.UUID) error {
	if _, err := s.resolveForAnswer(ctx, user, invitationID); err != nil {
		return err
	}

	if err := s.invites.Transition(ctx, invitationID, model.InvitationPending, model.InvitationDeclined); err != nil {
		return fmt.Errorf("service/access: declining invitation: %w", err)
	}

	s.logger.Info("invitation declined",
		slog.Int64("userID", user.ID),
		slog.String("invitationID", invitationID.String()),
	)
	return nil
}

// resolveForAnswer loads an invitation and checks that user may answer it:
// it must be addressed to them (by ID or by their email) and still be
// pending once lazy expiry is applied.
func (s *AccessService) resolveForAnswer(ctx context.Context, user *model.User, invitationID uuid.UUID) (*model.Invitation, error) {
	inv, err := s.invites.GetByID(ctx, invitationID)
	if err != nil {
		// A missing invitation reads exactly like one addressed to somebody
		// else.
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Forbidden("insufficient permissions")
		}
		return nil, fmt.Errorf("service/access: loading invitation: %w", err)
	}

	addressed := (inv.ReceiverID != nil && *inv.ReceiverID == user.ID) ||
		(inv.ReceiverID == nil && inv.ReceiverEmail == user.Email)
	if !addressed {
		return nil, apperror.Forbidden("insufficient permissions")
	}

	switch inv.EffectiveStatus(s.inviteTTL, time.Now()) {
	case model.InvitationPending:
		return inv, nil
	case model.InvitationExpired:
		return nil, apperror.InvalidState("invitation has expired")
	default:
		return nil, apperror.InvalidState("invitation is not pending")
	}
}
