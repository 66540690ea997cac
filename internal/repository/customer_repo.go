package repository

import (
	"context"
	"errors"

	"magirls/internal/model"

	"gorm.io/gorm"
)

type CustomerRepository interface {
	// FindOrCreate returns the customer with the same full name and phone,
	// creating it when absent. A nil or empty phone matches a NULL phone.
	FindOrCreate(ctx context.Context, fullName string, phone, email *string) (*model.Customer, error)
}

type customerRepo struct{ db *gorm.DB }

func NewCustomerRepository(db *gorm.DB) CustomerRepository { return &customerRepo{db: db} }

func (r *customerRepo) FindOrCreate(ctx context.Context, fullName string, phone, email *string) (*model.Customer, error) {
	db := getDB(ctx, r.db)
	phoneKey := ""
	if phone != nil {
		phoneKey = *phone
	}

	var c model.Customer
	err := db.Where("full_name = ? AND COALESCE(phone, '') = ?", fullName, phoneKey).
		Order("created_at ASC").
		First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, translateError(err)
	}

	c = model.Customer{FullName: fullName, Email: email}
	if phoneKey != "" {
		c.Phone = &phoneKey
	}
	if err := db.Create(&c).Error; err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}
