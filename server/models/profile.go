package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Daskott/kavach/server/auth"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrDuplicateEmail = errors.New("an account with this email already exists")

	updatableProfileFields = []string{"full_name", "mobile"}
)

type Profile struct {
	BaseModel
	FullName         string     `json:"fullName"`
	Email            *string    `json:"email,omitempty" gorm:"uniqueIndex"`
	PasswordHash     string     `json:"-"`
	Mobile           string     `json:"mobile,omitempty" gorm:"index"`
	MobileVerified   bool       `json:"mobileVerified" gorm:"not null;default:false"`
	IsPaid           bool       `json:"isPaid" gorm:"not null;default:false"`
	IsFreeCustomer   bool       `json:"isFreeCustomer" gorm:"not null;default:false"`
	IsCommercial     bool       `json:"isCommercial" gorm:"not null;default:false"`
	ActivationNumber *int       `json:"activationNumber,omitempty"`
	ActivatedAt      *time.Time `json:"activatedAt,omitempty"`
}

// CreateProfile stores a new locally registered profile. The password is
// hashed before it is persisted.
func CreateProfile(ctx context.Context, profile *Profile, password string) error {
	if profile.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*profile.Email))
		profile.Email = &email

		_, err := FindProfileByEmail(ctx, email)
		if err == nil {
			return ErrDuplicateEmail
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	if password != "" {
		passwordHash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		profile.PasswordHash = passwordHash
	}

	return db.WithContext(ctx).Create(profile).Error
}

func FindProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	profile := Profile{}
	err := db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func FindProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	profile := Profile{}
	err := db.WithContext(ctx).
		First(&profile, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

// FindOrProvisionProfile returns the profile with id, creating an empty one
// for users of the external identity provider on their first request.
func FindOrProvisionProfile(ctx context.Context, id uuid.UUID, email string) (*Profile, error) {
	profile := Profile{BaseModel: BaseModel{ID: id}}
	attrs := Profile{}
	if email != "" {
		email = strings.ToLower(email)
		attrs.Email = &email
	}

	err := db.WithContext(ctx).Where(Profile{BaseModel: BaseModel{ID: id}}).
		Attrs(attrs).FirstOrCreate(&profile).Error
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func FetchProfiles(ctx context.Context, page int) ([]Profile, *Paging, error) {
	var total int64
	profiles := []Profile{}

	err := db.WithContext(ctx).Model(&Profile{}).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = db.WithContext(ctx).Scopes(paginate(page, MAX_PAGE_SIZE)).
		Order("created_at desc").Find(&profiles).Error
	if err != nil {
		return nil, nil, err
	}

	return profiles, newPaging(int64(page), MAX_PAGE_SIZE, total), nil
}

func (profile *Profile) Update(ctx context.Context, data map[string]interface{}) error {
	if mobile, ok := data["mobile"]; ok && mobile != profile.Mobile {
		// A new number has to be verified again
		data["mobile_verified"] = false
	}

	fields := append([]string{"mobile_verified"}, updatableProfileFields...)
	return db.WithContext(ctx).Model(&Profile{}).Where("id = ?", profile.ID).
		Select(fields).Updates(data).Error
}

// CheckPassword reports whether password matches the stored hash. Profiles
// provisioned from external tokens have no password and never match.
func (profile *Profile) CheckPassword(password string) bool {
	if profile.PasswordHash == "" {
		return false
	}
	return auth.CheckPasswordHash(password, profile.PasswordHash)
}
