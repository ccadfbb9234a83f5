package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/letwise/onboarding/internal/core/domain"
)

const collectionUsers = "users"

// UserRepository is the credential store backed by the users collection.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(collectionUsers)}
}

// mongoUser is the write shape; Profile holds one of the domain profile structs.
type mongoUser struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	UserKey      string             `bson:"user_id"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
	Profile      any                `bson:"profile,omitempty"`
	CreatedAt    int64              `bson:"created_at"`
	UpdatedAt    int64              `bson:"updated_at"`
}

// storedUser is the read shape; the profile is decoded once the role is known.
type storedUser struct {
	ID           primitive.ObjectID `bson:"_id"`
	UserKey      string             `bson:"user_id"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Role         string             `bson:"role"`
	Profile      bson.Raw           `bson:"profile,omitempty"`
	CreatedAt    int64              `bson:"created_at"`
	UpdatedAt    int64              `bson:"updated_at"`
}

// Insert stores user and returns the generated id. A taken email or user key
// surfaces as domain.ErrDuplicateEmail.
func (r *UserRepository) Insert(ctx context.Context, user *domain.User) (string, error) {
	if !domain.ProfileMatchesRole(user.Role, user.Profile) {
		return "", fmt.Errorf("insert user: %w: %s with %T", domain.ErrProfileMismatch, user.Role, user.Profile)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoUser{
		UserKey:      user.UserKey,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         string(user.Role),
		Profile:      user.Profile,
		CreatedAt:    user.CreatedAt.Unix(),
		UpdatedAt:    user.UpdatedAt.Unix(),
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", domain.ErrDuplicateEmail
		}
		return "", fmt.Errorf("insert user: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert user: unexpected id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByUserKey(ctx context.Context, key string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"user_id": key})
}

// Get looks a user up by id. A malformed id matches nothing.
func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepository) Patch(ctx context.Context, id string, patch domain.UserPatch) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrUserNotFound
	}

	set := bson.M{"updated_at": time.Now().UTC().Unix()}
	if patch.PasswordHash != nil {
		set["password_hash"] = *patch.PasswordHash
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("patch user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// EnsureIndexes creates the unique indexes the credential store relies on.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var su storedUser
	if err := r.col.FindOne(ctx, filter).Decode(&su); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return su.toDomain()
}

func (su storedUser) toDomain() (*domain.User, error) {
	role := domain.Role(su.Role)
	u := &domain.User{
		ID:           su.ID.Hex(),
		UserKey:      su.UserKey,
		Email:        su.Email,
		PasswordHash: su.PasswordHash,
		Role:         role,
		CreatedAt:    unixToTime(su.CreatedAt),
		UpdatedAt:    unixToTime(su.UpdatedAt),
	}

	if len(su.Profile) == 0 {
		return u, nil
	}
	p, err := decodeProfile(role, su.Profile)
	if err != nil {
		return nil, fmt.Errorf("decode profile of %s: %w", su.ID.Hex(), err)
	}
	u.Profile = p
	return u, nil
}

func decodeProfile(role domain.Role, raw bson.Raw) (domain.Profile, error) {
	switch role {
	case domain.RoleLandlord:
		var p domain.LandlordProfile
		err := bson.Unmarshal(raw, &p)
		return p, err
	case domain.RoleTenant:
		var p domain.TenantProfile
		err := bson.Unmarshal(raw, &p)
		return p, err
	case domain.RoleMaintenance, domain.RoleCleaner:
		var p domain.ServiceProfile
		err := bson.Unmarshal(raw, &p)
		return p, err
	}
	return nil, fmt.Errorf("unknown role %q", role)
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
