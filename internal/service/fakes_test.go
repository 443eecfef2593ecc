package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/auth"
	"github.com/sakif/taskboard/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
//
// In-memory implementations of the repository interfaces. Fakes instead of
// a mock framework: the behavior is right here in the file, and a test
// reads top to bottom without consulting expectations set up elsewhere.
// =========================================================================

type fakeUserRepo struct {
	users  map[int64]*model.User
	nextID int64
	// set to a non-nil error to simulate a database failure
	createErr error
	getErr    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*model.User), nextID: 1}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now()
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", "")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", "")
}

func (f *fakeUserRepo) List(ctx context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUserRepo) UpdatePrivileges(ctx context.Context, id int64, p model.Privilege) error {
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", "")
	}
	u.Privileges = p
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", "")
	}
	delete(f.users, id)
	return nil
}

type fakeAccessRepo struct {
	grants map[uuid.UUID]*model.ResourceAccess
	// set to a non-nil error to simulate a database failure
	grantErr error
}

func newFakeAccessRepo() *fakeAccessRepo {
	return &fakeAccessRepo{grants: make(map[uuid.UUID]*model.ResourceAccess)}
}

func (f *fakeAccessRepo) Grant(ctx context.Context, g *model.ResourceAccess) error {
	if f.grantErr != nil {
		return f.grantErr
	}
	for _, existing := range f.grants {
		if existing.UserID == g.UserID && existing.ResourceType == g.ResourceType && existing.ResourceID == g.ResourceID {
			return apperror.ConflictingGrant()
		}
	}
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	copied := *g
	f.grants[g.ID] = &copied
	return nil
}

func (f *fakeAccessRepo) Find(ctx context.Context, userID int64, resourceType string, resourceID uuid.UUID) (*model.ResourceAccess, error) {
	for _, g := range f.grants {
		if g.UserID == userID && g.ResourceType == resourceType && g.ResourceID == resourceID {
			copied := *g
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("grant", "")
}

func (f *fakeAccessRepo) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID) ([]model.ResourceAccess, error) {
	var out []model.ResourceAccess
	for _, g := range f.grants {
		if g.ResourceType == resourceType && g.ResourceID == resourceID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeAccessRepo) Revoke(ctx context.Context, userID int64, resourceType string, resourceID uuid.UUID) error {
	for id, g := range f.grants {
		if g.UserID == userID && g.ResourceType == resourceType && g.ResourceID == resourceID {
			delete(f.grants, id)
			return nil
		}
	}
	return apperror.NotFound("grant", "")
}

type fakeInvitationRepo struct {
	invites map[uuid.UUID]*model.Invitation
}

func newFakeInvitationRepo() *fakeInvitationRepo {
	return &fakeInvitationRepo{invites: make(map[uuid.UUID]*model.Invitation)}
}

func (f *fakeInvitationRepo) Create(ctx context.Context, inv *model.Invitation) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	inv.CreatedAt = time.Now()
	copied := *inv
	f.invites[inv.ID] = &copied
	return nil
}

func (f *fakeInvitationRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Invitation, error) {
	inv, ok := f.invites[id]
	if !ok {
		return nil, apperror.NotFound("invitation", "")
	}
	copied := *inv
	return &copied, nil
}

func (f *fakeInvitationRepo) ListSent(ctx context.Context, senderID int64) ([]model.Invitation, error) {
	var out []model.Invitation
	for _, inv := range f.invites {
		if inv.SenderID == senderID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *fakeInvitationRepo) ListReceived(ctx context.Context, userID int64, email string) ([]model.Invitation, error) {
	var out []model.Invitation
	for _, inv := range f.invites {
		if (inv.ReceiverID != nil && *inv.ReceiverID == userID) ||
			(inv.ReceiverID == nil && inv.ReceiverEmail == email) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

// Transition mimics the guarded UPDATE: it only flips the status when the
// stored row still matches `from`, which is what makes concurrent accepts
// lose cleanly.
func (f *fakeInvitationRepo) Transition(ctx context.Context, id uuid.UUID, from, to model.InvitationStatus) error {
	inv, ok := f.invites[id]
	if !ok || inv.Status != from {
		return apperror.InvalidState("invitation is not pending")
	}
	inv.Status = to
	return nil
}

func (f *fakeInvitationRepo) AttachReceiver(ctx context.Context, email string, userID int64) error {
	for _, inv := range f.invites {
		if inv.ReceiverID == nil && inv.ReceiverEmail == email && inv.Status == model.InvitationPending {
			id := userID
			inv.ReceiverID = &id
		}
	}
	return nil
}

type fakeProjectRepo struct {
	projects map[uuid.UUID]*model.Project
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[uuid.UUID]*model.Project)}
}

func (f *fakeProjectRepo) Create(ctx context.Context, p *model.Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	copied := *p
	f.projects[p.ID] = &copied
	return nil
}

func (f *fakeProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, apperror.NotFound("project", id.String())
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProjectRepo) ListForUser(ctx context.Context, userID int64) ([]model.Project, error) {
	var out []model.Project
	for _, p := range f.projects {
		if p.CreatedBy == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProjectRepo) Update(ctx context.Context, p *model.Project) error {
	if _, ok := f.projects[p.ID]; !ok {
		return apperror.NotFound("project", p.ID.String())
	}
	copied := *p
	f.projects[p.ID] = &copied
	return nil
}

func (f *fakeProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.projects[id]; !ok {
		return apperror.NotFound("project", id.String())
	}
	delete(f.projects, id)
	return nil
}

type fakeDocumentRepo struct {
	docs map[uuid.UUID]*model.DocumentFile
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: make(map[uuid.UUID]*model.DocumentFile)}
}

func (f *fakeDocumentRepo) Create(ctx context.Context, d *model.DocumentFile) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	copied := *d
	f.docs[d.ID] = &copied
	return nil
}

func (f *fakeDocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.DocumentFile, error) {
	d, ok := f.docs[id]
	if !ok {
		return nil, apperror.NotFound("document", id.String())
	}
	copied := *d
	return &copied, nil
}

func (f *fakeDocumentRepo) ListForUser(ctx context.Context, userID int64) ([]model.DocumentFile, error) {
	var out []model.DocumentFile
	for _, d := range f.docs {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDocumentRepo) Update(ctx context.Context, d *model.DocumentFile) error {
	if _, ok := f.docs[d.ID]; !ok {
		return apperror.NotFound("document", d.ID.String())
	}
	copied := *d
	f.docs[d.ID] = &copied
	return nil
}

func (f *fakeDocumentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.docs[id]; !ok {
		return apperror.NotFound("document", id.String())
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeDocumentRepo) UpdateRegister(ctx context.Context, id uuid.UUID, name string, data json.RawMessage) error {
	if _, ok := f.docs[id]; !ok {
		return apperror.NotFound("document", id.String())
	}
	return nil
}

func (f *fakeDocumentRepo) GetOrganizationChart(ctx context.Context, fileID uuid.UUID) (*model.OrganizationChart, error) {
	return nil, apperror.NotFound("organization chart", fileID.String())
}

func (f *fakeDocumentRepo) SaveOrganizationChart(ctx context.Context, chart *model.OrganizationChart) error {
	return nil
}

var errBoom = errors.New("database is on fire")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestAuthService wires an AuthService with fakes. Bcrypt runs at the
// minimum cost so the suite stays fast.
func newTestAuthService(t *testing.T, users *fakeUserRepo, invites *fakeInvitationRepo) *AuthService {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	ps := auth.NewPasswordServiceWithCost(4)
	return NewAuthService(users, invites, ts, ps, testLogger())
}

func newTestGate(users *fakeUserRepo, access *fakeAccessRepo, invites *fakeInvitationRepo, projects *fakeProjectRepo, documents *fakeDocumentRepo) *AccessService {
	return NewAccessService(access, invites, users, projects, documents, 7*24*time.Hour, testLogger())
}
