package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
)

// gateFixture wires a gate with fakes and two users: alice owns a project
// (as its creator, no grant row), bob has nothing.
type gateFixture struct {
	gate     *AccessService
	users    *fakeUserRepo
	access   *fakeAccessRepo
	invites  *fakeInvitationRepo
	projects *fakeProjectRepo
	alice    *model.User
	bob      *model.User
	project  *model.Project
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	users := newFakeUserRepo()
	access := newFakeAccessRepo()
	invites := newFakeInvitationRepo()
	projects := newFakeProjectRepo()
	documents := newFakeDocumentRepo()

	alice := &model.User{Name: "Alice", Email: "alice@example.com"}
	bob := &model.User{Name: "Bob", Email: "bob@example.com"}
	users.Create(context.Background(), alice)
	users.Create(context.Background(), bob)

	project := &model.Project{Name: "skunkworks", Status: model.ProjectActive, Visibility: model.VisibilityPrivate, CreatedBy: alice.ID}
	projects.Create(context.Background(), project)

	return &gateFixture{
		gate:     newTestGate(users, access, invites, projects, documents),
		users:    users,
		access:   access,
		invites:  invites,
		projects: projects,
		alice:    alice,
		bob:      bob,
		project:  project,
	}
}

// =========================================================================
// RequireRole TESTS
// =========================================================================

func TestRequireRole_CreatorIsImplicitOwner(t *testing.T) {
	f := newGateFixture(t)

	// No grant row exists for alice; creator status alone must satisfy owner.
	err := f.gate.RequireRole(context.Background(), f.alice, model.ResourceProject, f.project.ID, model.RoleOwner)
	if err != nil {
		t.Fatalf("RequireRole() for creator = %v, want nil", err)
	}
}

func TestRequireRole_NoGrantIsForbidden(t *testing.T) {
	f := newGateFixture(t)

	err := f.gate.RequireRole(context.Background(), f.bob, model.ResourceProject, f.project.ID, model.RoleViewer)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("RequireRole() without grant = %v, want forbidden", err)
	}
}

func TestRequireRole_RoleHierarchy(t *testing.T) {
	f := newGateFixture(t)

	f.access.Grant(context.Background(), &model.ResourceAccess{
		UserID: f.bob.ID, ResourceType: model.ResourceProject, ResourceID: f.project.ID, Role: model.RoleEditor,
	})

	cases := []struct {
		min  model.Role
		want bool
	}{
		{model.RoleViewer, true},
		{model.RoleEditor, true},
		{model.RoleOwner, false},
	}
	for _, tc := range cases {
		err := f.gate.RequireRole(context.Background(), f.bob, model.ResourceProject, f.project.ID, tc.min)
		if tc.want && err != nil {
			t.Errorf("editor vs %s: got %v, want pass", tc.min, err)
		}
		if !tc.want && !errors.Is(err, apperror.ErrForbidden) {
			t.Errorf("editor vs %s: got %v, want forbidden", tc.min, err)
		}
	}
}

func TestRequireRole_MissingResource(t *testing.T) {
	f := newGateFixture(t)

	// A nonexistent resource must look exactly like one the caller is not
	// allowed to see, otherwise the gate is an existence oracle.
	err := f.gate.RequireRole(context.Background(), f.alice, model.ResourceProject, uuid.New(), model.RoleViewer)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("RequireRole() on missing resource = %v, want forbidden", err)
	}
	if errors.Is(err, apperror.ErrNotFound) {
		t.Fatal("missing resource must not surface as not found")
	}
}

func TestRequireAdmin(t *testing.T) {
	f := newGateFixture(t)

	if err := f.gate.RequireAdmin(f.alice); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("RequireAdmin(regular user) = %v, want forbidden", err)
	}

	f.alice.Privileges = model.PrivilegeAdmin
	if err := f.gate.RequireAdmin(f.alice); err != nil {
		t.Errorf("RequireAdmin(admin) = %v, want nil", err)
	}
}

// =========================================================================
// INVITATION LIFECYCLE TESTS
// =========================================================================

func TestInvite_OnlyOwnerMayInvite(t *testing.T) {
	f := newGateFixture(t)

	_, err := f.gate.Invite(context.Background(), f.bob, "carol@example.com", model.ResourceProject, f.project.ID, model.RoleViewer)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Invite() by non-owner = %v, want forbidden", err)
	}
}

func TestInvite_BindsKnownEmailImmediately(t *testing.T) {
	f := newGateFixture(t)

	inv, err := f.gate.Invite(context.Background(), f.alice, f.bob.Email, model.ResourceProject, f.project.ID, model.RoleEditor)
	if err != nil {
		t.Fatalf("Invite() error = %v", err)
	}
	if inv.ReceiverID == nil || *inv.ReceiverID != f.bob.ID {
		t.Error("invitation to a registered email should carry the receiver ID")
	}
}

func TestInvite_UnknownEmailStillSucceeds(t *testing.T) {
	f := newGateFixture(t)

	inv, err := f.gate.Invite(context.Background(), f.alice, "stranger@example.com", model.ResourceProject, f.project.ID, model.RoleViewer)
	if err != nil {
		t.Fatalf("Invite() to unknown email = %v, want success (no enumeration oracle)", err)
	}
	if inv.ReceiverID != nil {
		t.Error("invitation to an unknown email must stay unbound")
	}
}

func TestInvite_SelfInviteRejected(t *testing.T) {
	f := newGateFixture(t)

	_, err := f.gate.Invite(context.Background(), f.alice, f.alice.Email, model.ResourceProject, f.project.ID, model.RoleViewer)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Invite() to self = %v, want validation error", err)
	}
}

func TestAccept_ProducesGrantWithInvitedRole(t *testing.T) {
	f := newGateFixture(t)

	inv, err := f.gate.Invite(context.Background(), f.alice, f.bob.Email, model.ResourceProject, f.project.ID, model.RoleEditor)
	if err != nil {
		t.Fatalf("setup invite: %v", err)
	}

	grant, err := f.gate.Accept(context.Background(), f.bob, inv.ID)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if grant.Role != model.RoleEditor {
		t.Errorf("grant role = %s, want editor", grant.Role)
	}

	// The grant now opens editor-level operations and nothing above.
	if err := f.gate.RequireRole(context.Background(), f.bob, model.ResourceProject, f.project.ID, model.RoleEditor); err != nil {
		t.Errorf("editor check after accept = %v, want pass", err)
	}
	if err := f.gate.RequireRole(context.Background(), f.bob, model.ResourceProject, f.project.ID, model.RoleOwner); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("owner check after accept = %v, want forbidden", err)
	}
}

func TestAccept_NotAddressedToCaller(t *testing.T) {
	f := newGateFixture(t)

	inv, _ := f.gate.Invite(context.Background(), f.alice, "carol@example.com", model.ResourceProject, f.project.ID, model.RoleViewer)

	_, err := f.gate.Accept(context.Background(), f.bob, inv.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Accept() by wrong user = %v, want forbidden", err)
	}
}

func TestAccept_SecondAcceptLosesCleanly(t *testing.T) {
	f := newGateFixture(t)

	inv, _ := f.gate.Invite(context.Background(), f.alice, f.bob.Email, model.ResourceProject, f.project.ID, model.RoleViewer)

	if _, err := f.gate.Accept(context.Background(), f.bob, inv.ID); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	_, err := f.gate.Accept(context.Background(), f.bob, inv.ID)
	if !errors.Is(err, apperror.ErrInvalidState) {
		t.Fatalf("second accept = %v, want invalid state", err)
	}
}

func TestAccept_FailedGrantRestoresPending(t *testing.T) {
	f := newGateFixture(t)

	inv, _ := f.gate.Invite(context.Background(), f.alice, f.bob.Email, model.ResourceProject, f.project.ID, model.RoleEditor)

	// The grant insert blows up after the status flip; the invitation must
	// come back pending so the accept can be retried.
	f.access.grantErr = errBoom
	if _, err := f.gate.Accept(context.Background(), f.bob, inv.ID); !errors.Is(err, errBoom) {
		t.Fatalf("Accept() with failing grant = %v, want wrapped store error", err)
	}
	if f.invites.invites[inv.ID].Status != model.InvitationPending {
		t.Fatalf("invitation status = %s, want pending after failed grant", f.invites.invites[inv.ID].Status)
	}

	// Once the store recovers, the same invitation accepts normally.
	f.access.grantErr = nil
	grant, err := f.gate.Accept(context.Background(), f.bob, inv.ID)
	if err != nil {
		t.Fatalf("retried Accept() error = %v", err)
	}
	if grant.Role != model.RoleEditor {
		t.Errorf("grant role = %s, want editor", grant.Role)
	}
}

func TestAccept_ExpiredInvitation(t *testing.T) {
	f := newGateFixture(t)

	inv, _ := f.gate.Invite(context.Background(), f.alice, f.bob.Email, model.ResourceProject, f.project.ID, model.RoleViewer)

	// Backdate past the TTL; the stored status is still "pending" — expiry
	// is computed, not written.
	stored := f.invites.invites[inv.ID]
	stored.CreatedAt = time.Now().Add(-8 * 24 * time.Hour)

	_, err := f.gate.Accept(context.Background(), f.bob, inv.ID)
	if !errors.Is(err, apperror.ErrInvalidState) {
		t.Fatalf("Accept() on expired invitation = %v, want invalid state", err)
	}
}

func TestDecline_NoGrantCreated(t *testing.T) {
	f := newGateFixture(t)

	inv, _ := f.gate.Invite(context.Background(), f.alice, f.bob.Email, model.ResourceProject, f.project.ID, model.RoleEditor)

	if err := f.gate.Decline(context.Background(), f.bob, inv.ID); err != nil {
		t.Fatalf("Decline() error = %v", err)
	}
	if err := f.gate.RequireRole(context.Background(), f.bob, model.ResourceProject, f.project.ID, model.RoleViewer); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("declined invitation must not grant access, got %v", err)
	}

	// Declined is terminal — accepting afterwards fails.
	if _, err := f.gate.Accept(context.Background(), f.bob, inv.ID); !errors.Is(err, apperror.ErrInvalidState) {
		t.Errorf("Accept() after decline = %v, want invalid state", err)
	}
}

func TestInvitations_LazyExpiryApplied(t *testing.T) {
	f := newGateFixture(t)

	inv, _ := f.gate.Invite(context.Background(), f.alice, f.bob.Email, model.ResourceProject, f.project.ID, model.RoleViewer)
	f.invites.invites[inv.ID].CreatedAt = time.Now().Add(-8 * 24 * time.Hour)

	_, received, err := f.gate.Invitations(context.Background(), f.bob)
	if err != nil {
		t.Fatalf("Invitations() error = %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("received %d invitations, want 1", len(received))
	}
	if received[0].Status != model.InvitationExpired {
		t.Errorf("listed status = %s, want expired", received[0].Status)
	}
}

// =========================================================================
// GRANT MANAGEMENT TESTS
// =========================================================================

func TestRevoke_OwnerRevokesOther(t *testing.T) {
	f := newGateFixture(t)

	f.access.Grant(context.Background(), &model.ResourceAccess{
		UserID: f.bob.ID, ResourceType: model.ResourceProject, ResourceID: f.project.ID, Role: model.RoleViewer,
	})

	if err := f.gate.Revoke(context.Background(), f.alice, f.bob.ID, model.ResourceProject, f.project.ID); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	// Revocation is visible to the very next check.
	err := f.gate.RequireRole(context.Background(), f.bob, model.ResourceProject, f.project.ID, model.RoleViewer)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("check after revoke = %v, want forbidden", err)
	}
}

func TestRevoke_SelfRemovalAllowed(t *testing.T) {
	f := newGateFixture(t)

	f.access.Grant(context.Background(), &model.ResourceAccess{
		UserID: f.bob.ID, ResourceType: model.ResourceProject, ResourceID: f.project.ID, Role: model.RoleViewer,
	})

	if err := f.gate.Revoke(context.Background(), f.bob, f.bob.ID, model.ResourceProject, f.project.ID); err != nil {
		t.Fatalf("self Revoke() error = %v", err)
	}
}

func TestRevoke_NonOwnerCannotRevokeOthers(t *testing.T) {
	f := newGateFixture(t)

	f.access.Grant(context.Background(), &model.ResourceAccess{
		UserID: f.bob.ID, ResourceType: model.ResourceProject, ResourceID: f.project.ID, Role: model.RoleEditor,
	})

	err := f.gate.Revoke(context.Background(), f.bob, f.alice.ID, model.ResourceProject, f.project.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Revoke() by editor = %v, want forbidden", err)
	}
}

func TestGrants_NeedsViewer(t *testing.T) {
	f := newGateFixture(t)

	if _, err := f.gate.Grants(context.Background(), f.bob, model.ResourceProject, f.project.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Grants() without access = %v, want forbidden", err)
	}
	if _, err := f.gate.Grants(context.Background(), f.alice, model.ResourceProject, f.project.ID); err != nil {
		t.Fatalf("Grants() by owner = %v", err)
	}
}
