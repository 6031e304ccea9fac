package repository

import (
	"errors"
	"fmt"

	"forex-signal-go/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound marks lookups that matched nothing.
var ErrNotFound = errors.New("record not found")

// UserRepository is the persistence boundary for accounts.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user %d: %w", id, err)
	}
	return &user, nil
}

func (r *UserRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user %q: %w", username, err)
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &user, nil
}

// EmailTaken reports whether another account already uses the email.
func (r *UserRepository) EmailTaken(email string, excludeUserID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("email = ? AND id != ?", email, excludeUserID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

func (r *UserRepository) UpdateEmail(id uint, email string) error {
	if err := r.db.Model(&models.User{}).Where("id = ?", id).Update("email", email).Error; err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdatePassword(id uint, passwordHash string) error {
	if err := r.db.Model(&models.User{}).Where("id = ?", id).Update("password_hash", passwordHash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdateProfileImage(id uint, url string) error {
	if err := r.db.Model(&models.User{}).Where("id = ?", id).Update("profile_image_url", url).Error; err != nil {
		return fmt.Errorf("failed to update profile image: %w", err)
	}
	return nil
}

// List returns every account ordered by id, for the admin dashboard.
func (r *UserRepository) List() ([]models.User, error) {
	var users []models.User
	if err := r.db.Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) SetAdmin(id uint, isAdmin bool) error {
	if err := r.db.Model(&models.User{}).Where("id = ?", id).Update("is_admin", isAdmin).Error; err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}
	return nil
}

// AdminEmails returns the notification targets for ticket events.
func (r *UserRepository) AdminEmails() ([]string, error) {
	var emails []string
	err := r.db.Model(&models.User{}).
		Where("is_admin = ? AND email != ''", true).
		Pluck("email", &emails).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list admin emails: %w", err)
	}
	return emails, nil
}

// AdminIDs returns the ids of all admin accounts.
func (r *UserRepository) AdminIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.User{}).
		Where("is_admin = ?", true).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list admin ids: %w", err)
	}
	return ids, nil
}

// DeleteCascade removes a user and everything they own in one transaction.
func (r *UserRepository) DeleteCascade(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ?", id).Delete(&models.TicketReply{}).Error; err != nil {
			return fmt.Errorf("failed to delete ticket replies for user %d: %w", id, err)
		}
		if err := tx.Unscoped().Where("user_id = ?", id).Delete(&models.SupportTicket{}).Error; err != nil {
			return fmt.Errorf("failed to delete tickets for user %d: %w", id, err)
		}
		if err := tx.Unscoped().Where("user_id = ?", id).Delete(&models.SignalRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete signals for user %d: %w", id, err)
		}
		if err := tx.Unscoped().Delete(&models.User{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete user %d: %w", id, err)
		}
		return nil
	})
}
