package refcodes

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/scribeworks/backend/internal/models"
)

// fakeStore is an in-memory Store keyed by code string.
type fakeStore struct {
	codes      map[string]*CodeOwner
	insertErrs []error // popped per Insert call before storing
	inserts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{codes: make(map[string]*CodeOwner)}
}

func (f *fakeStore) Insert(_ context.Context, ownerID uuid.UUID, codeType models.CodeType, code string, expiresAt *time.Time) (*models.ReferenceCode, error) {
	f.inserts++
	if len(f.insertErrs) > 0 {
		err := f.insertErrs[0]
		f.insertErrs = f.insertErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if _, exists := f.codes[code]; exists {
		return nil, &pgconn.PgError{Code: "23505"}
	}
	ref := models.ReferenceCode{
		ID:        uuid.New(),
		Code:      code,
		OwnerID:   ownerID,
		CodeType:  codeType,
		IsActive:  true,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	f.codes[code] = &CodeOwner{Ref: ref}
	return &ref, nil
}

func (f *fakeStore) GetByCode(_ context.Context, code string) (*CodeOwner, error) {
	co, ok := f.codes[code]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return co, nil
}

func TestGrantRole_Table(t *testing.T) {
	cases := []struct {
		owner    models.Role
		codeType models.CodeType
		want     models.Role
		ok       bool
	}{
		{models.RoleSuperAgent, models.CodeAgentRecruitment, models.RoleAgent, true},
		{models.RoleAgent, models.CodeClientRecruitment, models.RoleClient, true},
		{models.RoleAgent, models.CodeWorkerRecruitment, models.RoleSuperWorker, true},
		{models.RoleSuperWorker, models.CodeWorkerRecruitment, models.RoleWorker, true},

		{models.RoleSuperAgent, models.CodeClientRecruitment, "", false},
		{models.RoleSuperAgent, models.CodeWorkerRecruitment, "", false},
		{models.RoleAgent, models.CodeAgentRecruitment, "", false},
		{models.RoleSuperWorker, models.CodeAgentRecruitment, "", false},
		{models.RoleSuperWorker, models.CodeClientRecruitment, "", false},
		{models.RoleWorker, models.CodeWorkerRecruitment, "", false},
		{models.RoleClient, models.CodeClientRecruitment, "", false},
	}
	for _, tc := range cases {
		got, ok := GrantRole(tc.owner, tc.codeType)
		require.Equal(t, tc.ok, ok, "%s issuing %s", tc.owner, tc.codeType)
		require.Equal(t, tc.want, got, "%s issuing %s", tc.owner, tc.codeType)
	}
}

func TestPlacementFor_DerivesRoleParentLevel(t *testing.T) {
	ownerID := uuid.New()
	superAgentID := uuid.New()
	v := Validation{
		Valid: true,
		Ref: &models.ReferenceCode{
			OwnerID:  ownerID,
			CodeType: models.CodeWorkerRecruitment,
		},
		OwnerRole:         models.RoleAgent,
		OwnerLevel:        2,
		OwnerSuperAgentID: superAgentID,
	}

	p, err := PlacementFor(v)
	require.NoError(t, err)
	require.Equal(t, models.RoleSuperWorker, p.Role)
	require.Equal(t, ownerID, p.ParentID)
	require.Equal(t, 3, p.Level)
	require.Equal(t, superAgentID, p.SuperAgentID)
}

func TestPlacementFor_RejectsBeyondMaxDepth(t *testing.T) {
	v := Validation{
		Valid: true,
		Ref: &models.ReferenceCode{
			OwnerID:  uuid.New(),
			CodeType: models.CodeWorkerRecruitment,
		},
		OwnerRole:  models.RoleSuperWorker,
		OwnerLevel: models.MaxHierarchyLevel,
	}
	_, err := PlacementFor(v)
	require.ErrorIs(t, err, ErrTreeDepth)
}

func TestPlacementFor_RequiresValidCode(t *testing.T) {
	_, err := PlacementFor(Validation{Valid: false, Reason: "expired"})
	require.Error(t, err)
}

func TestIssuerGenerate_CodeFormat(t *testing.T) {
	store := newFakeStore()
	issuer := NewIssuer(store, "REF", 0, nil)

	ref, err := issuer.Generate(context.Background(), uuid.New(), models.RoleSuperAgent, models.CodeAgentRecruitment, "")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^REF-[0-9A-F]{8}$`), ref.Code)
	require.True(t, ref.IsActive)
	require.Nil(t, ref.ExpiresAt)
}

func TestIssuerGenerate_CustomPrefixAndExpiry(t *testing.T) {
	store := newFakeStore()
	issuer := NewIssuer(store, "REF", 30, nil)

	ref, err := issuer.Generate(context.Background(), uuid.New(), models.RoleAgent, models.CodeClientRecruitment, "ACME")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^ACME-[0-9A-F]{8}$`), ref.Code)
	require.NotNil(t, ref.ExpiresAt)
	require.WithinDuration(t, time.Now().AddDate(0, 0, 30), *ref.ExpiresAt, time.Minute)
}

func TestIssuerGenerate_NotEntitled(t *testing.T) {
	store := newFakeStore()
	issuer := NewIssuer(store, "REF", 0, nil)

	_, err := issuer.Generate(context.Background(), uuid.New(), models.RoleWorker, models.CodeWorkerRecruitment, "")
	require.ErrorIs(t, err, ErrNotEntitled)
	require.Zero(t, store.inserts, "no insert should be attempted")
}

func TestIssuerGenerate_RetriesOnCollisionThenSucceeds(t *testing.T) {
	store := newFakeStore()
	store.insertErrs = []error{
		&pgconn.PgError{Code: "23505"},
		&pgconn.PgError{Code: "23505"},
	}
	issuer := NewIssuer(store, "REF", 0, nil)

	ref, err := issuer.Generate(context.Background(), uuid.New(), models.RoleSuperAgent, models.CodeAgentRecruitment, "")
	require.NoError(t, err)
	require.NotNil(t, ref)
	require.Equal(t, 3, store.inserts)
}

func TestIssuerGenerate_ExhaustsRetries(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < maxGenerateAttempts; i++ {
		store.insertErrs = append(store.insertErrs, &pgconn.PgError{Code: "23505"})
	}
	issuer := NewIssuer(store, "REF", 0, nil)

	_, err := issuer.Generate(context.Background(), uuid.New(), models.RoleSuperAgent, models.CodeAgentRecruitment, "")
	require.ErrorIs(t, err, ErrCodeSpaceExhausted)
	require.Equal(t, maxGenerateAttempts, store.inserts)
}

func TestIssuerGenerate_StopsOnNonCollisionError(t *testing.T) {
	store := newFakeStore()
	store.insertErrs = []error{&pgconn.PgError{Code: "57014"}}
	issuer := NewIssuer(store, "REF", 0, nil)

	_, err := issuer.Generate(context.Background(), uuid.New(), models.RoleSuperAgent, models.CodeAgentRecruitment, "")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrCodeSpaceExhausted)
	require.Equal(t, 1, store.inserts)
}

func TestIssuerValidate_Reasons(t *testing.T) {
	store := newFakeStore()
	issuer := NewIssuer(store, "REF", 0, nil)
	now := time.Now()

	expired := now.Add(-time.Hour)
	store.codes["REF-EXPIRED1"] = &CodeOwner{Ref: models.ReferenceCode{
		Code: "REF-EXPIRED1", CodeType: models.CodeAgentRecruitment, IsActive: true, ExpiresAt: &expired,
	}}
	store.codes["REF-INACTIVE"] = &CodeOwner{Ref: models.ReferenceCode{
		Code: "REF-INACTIVE", CodeType: models.CodeAgentRecruitment, IsActive: false,
	}}

	v, err := issuer.Validate(context.Background(), "REF-MISSING1")
	require.NoError(t, err)
	require.False(t, v.Valid)
	require.Equal(t, "not_found", v.Reason)

	v, err = issuer.Validate(context.Background(), "REF-INACTIVE")
	require.NoError(t, err)
	require.False(t, v.Valid)
	require.Equal(t, "inactive", v.Reason)

	v, err = issuer.Validate(context.Background(), "REF-EXPIRED1")
	require.NoError(t, err)
	require.False(t, v.Valid)
	require.Equal(t, "expired", v.Reason)
}

func TestIssuer_GenerateThenValidateRoundTrip(t *testing.T) {
	store := newFakeStore()
	issuer := NewIssuer(store, "REF", 0, nil)
	ownerID := uuid.New()

	ref, err := issuer.Generate(context.Background(), ownerID, models.RoleSuperAgent, models.CodeAgentRecruitment, "")
	require.NoError(t, err)

	// The store fake does not join owner hierarchy; patch it in as the
	// repository query would.
	store.codes[ref.Code].OwnerRole = models.RoleSuperAgent
	store.codes[ref.Code].OwnerLevel = 1
	store.codes[ref.Code].SuperAgentID = ownerID

	v, err := issuer.Validate(context.Background(), ref.Code)
	require.NoError(t, err)
	require.True(t, v.Valid)
	require.Empty(t, v.Reason)
	require.Equal(t, ownerID, v.Ref.OwnerID)
	require.Equal(t, models.CodeAgentRecruitment, v.Ref.CodeType)

	p, err := PlacementFor(v)
	require.NoError(t, err)
	require.Equal(t, models.RoleAgent, p.Role)
	require.Equal(t, ownerID, p.ParentID)
	require.Equal(t, 2, p.Level)
}
