package refcodes

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scribeworks/backend/internal/models"
)

var (
	// ErrNotEntitled means the owner's role cannot issue this code type.
	ErrNotEntitled = errors.New("role not entitled to this code type")
	// ErrCodeSpaceExhausted means generation kept colliding with existing codes.
	ErrCodeSpaceExhausted = errors.New("could not generate a unique code")
	// ErrTreeDepth means placing the registrant would exceed the maximum depth.
	ErrTreeDepth = errors.New("hierarchy depth limit reached")
)

// maxGenerateAttempts bounds the retry-on-collision loop.
const maxGenerateAttempts = 5

// grantTable maps (owner role, code type) to the role a registrant using
// the code receives. Absence means the owner cannot issue that code type.
var grantTable = map[models.Role]map[models.CodeType]models.Role{
	models.RoleSuperAgent: {
		models.CodeAgentRecruitment: models.RoleAgent,
	},
	models.RoleAgent: {
		models.CodeClientRecruitment: models.RoleClient,
		models.CodeWorkerRecruitment: models.RoleSuperWorker,
	},
	models.RoleSuperWorker: {
		models.CodeWorkerRecruitment: models.RoleWorker,
	},
}

// GrantRole returns the role granted by (ownerRole, codeType), or false if
// the owner is not entitled to issue that code type.
func GrantRole(ownerRole models.Role, codeType models.CodeType) (models.Role, bool) {
	granted, ok := grantTable[ownerRole][codeType]
	return granted, ok
}

// CodeOwner bundles a code with its owner's role and tree position.
type CodeOwner struct {
	Ref          models.ReferenceCode
	OwnerRole    models.Role
	OwnerLevel   int
	SuperAgentID uuid.UUID
}

// Store is the persistence the issuer needs.
type Store interface {
	Insert(ctx context.Context, ownerID uuid.UUID, codeType models.CodeType, code string, expiresAt *time.Time) (*models.ReferenceCode, error)
	GetByCode(ctx context.Context, code string) (*CodeOwner, error)
}

// Validation is the outcome of checking a code at registration time.
// Reason distinguishes why an invalid code was rejected.
type Validation struct {
	Valid             bool                  `json:"valid"`
	Reason            string                `json:"reason,omitempty"` // not_found | inactive | expired
	Ref               *models.ReferenceCode `json:"code,omitempty"`
	OwnerRole         models.Role           `json:"owner_role,omitempty"`
	OwnerLevel        int                   `json:"owner_level,omitempty"`
	OwnerSuperAgentID uuid.UUID             `json:"-"`
}

// Placement describes where a validated code puts a new registrant.
type Placement struct {
	Role         models.Role
	ParentID     uuid.UUID
	Level        int
	SuperAgentID uuid.UUID
}

// PlacementFor derives the registrant's role, parent and level from a valid
// code. The parent is always the code owner.
func PlacementFor(v Validation) (Placement, error) {
	if !v.Valid || v.Ref == nil {
		return Placement{}, errors.New("placement requires a valid code")
	}
	role, ok := GrantRole(v.OwnerRole, v.Ref.CodeType)
	if !ok {
		return Placement{}, ErrNotEntitled
	}
	level := v.OwnerLevel + 1
	if level > models.MaxHierarchyLevel {
		return Placement{}, ErrTreeDepth
	}
	return Placement{
		Role:         role,
		ParentID:     v.Ref.OwnerID,
		Level:        level,
		SuperAgentID: v.OwnerSuperAgentID,
	}, nil
}

// Issuer generates and validates reference codes.
type Issuer struct {
	store      Store
	prefix     string
	expireDays int
	logger     *zap.Logger
}

// NewIssuer creates a code issuer. prefix is the default code prefix;
// expireDays <= 0 issues codes without expiry.
func NewIssuer(store Store, prefix string, expireDays int, logger *zap.Logger) *Issuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Issuer{store: store, prefix: prefix, expireDays: expireDays, logger: logger}
}

// randomCode returns PREFIX-XXXXXXXX with 8 uppercase hex characters.
func randomCode(prefix string) (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(hex.EncodeToString(b))), nil
}

// Generate issues a new code owned by ownerID. The owner's role must be
// entitled to the code type. Retries on uniqueness collision up to
// maxGenerateAttempts, then fails with ErrCodeSpaceExhausted.
func (i *Issuer) Generate(ctx context.Context, ownerID uuid.UUID, ownerRole models.Role, codeType models.CodeType, prefix string) (*models.ReferenceCode, error) {
	if !codeType.Valid() {
		return nil, fmt.Errorf("unknown code type %q", codeType)
	}
	if _, ok := GrantRole(ownerRole, codeType); !ok {
		return nil, ErrNotEntitled
	}
	if prefix == "" {
		prefix = i.prefix
	}
	var expiresAt *time.Time
	if i.expireDays > 0 {
		t := time.Now().AddDate(0, 0, i.expireDays)
		expiresAt = &t
	}
	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		code, err := randomCode(prefix)
		if err != nil {
			return nil, err
		}
		ref, err := i.store.Insert(ctx, ownerID, codeType, code, expiresAt)
		if err == nil {
			return ref, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		i.logger.Warn("reference code collision, retrying",
			zap.String("code", code), zap.Int("attempt", attempt))
	}
	return nil, ErrCodeSpaceExhausted
}

// Validate checks a code string. Invalid codes carry a distinct reason so
// callers can present different messages for unknown, deactivated and
// expired codes.
func (i *Issuer) Validate(ctx context.Context, code string) (Validation, error) {
	co, err := i.store.GetByCode(ctx, code)
	if err != nil {
		if isNoRows(err) {
			return Validation{Valid: false, Reason: "not_found"}, nil
		}
		return Validation{}, err
	}
	v := Validation{
		Ref:               &co.Ref,
		OwnerRole:         co.OwnerRole,
		OwnerLevel:        co.OwnerLevel,
		OwnerSuperAgentID: co.SuperAgentID,
	}
	switch {
	case !co.Ref.IsActive:
		v.Reason = "inactive"
	case co.Ref.ExpiresAt != nil && co.Ref.ExpiresAt.Before(time.Now()):
		v.Reason = "expired"
	default:
		v.Valid = true
	}
	return v, nil
}
