package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"team-directory/internal/domain"
	"team-directory/internal/feature/user"
)

// UserRepo 目录镜像表；同时实现 domain.UserSource
type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Migrate() error { return r.db.AutoMigrate(&user.UserModel{}) }

// FetchUsers 按 id 升序返回全部
func (r *UserRepo) FetchUsers(ctx context.Context) ([]domain.User, error) {
	var rows []user.UserModel
	if err := r.db.WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.ToDomain())
	}
	return out, nil
}

// ReplaceAll 整表替换（单事务）
func (r *UserRepo) ReplaceAll(ctx context.Context, users []domain.User) (int, error) {
	rows := make([]user.UserModel, 0, len(users))
	now := time.Now()
	for _, u := range users {
		m := user.FromDomain(u)
		m.CreatedAt, m.UpdatedAt = now, now
		rows = append(rows, m)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&user.UserModel{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 200).Error
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (r *UserRepo) FindByID(ctx context.Context, id int) (*domain.User, error) {
	var m user.UserModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u := m.ToDomain()
	return &u, nil
}

// List 分页 + 可选关键字（name/username/email/company 模糊匹配）
func (r *UserRepo) List(ctx context.Context, offset, limit int, q string) ([]domain.User, int64, error) {
	tx := r.db.WithContext(ctx).Model(&user.UserModel{})
	if s := strings.ToLower(strings.TrimSpace(q)); s != "" {
		like := "%" + s + "%"
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company_name) LIKE ?",
			like, like, like, like)
	}
	tx = tx.Session(&gorm.Session{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []user.UserModel
	if err := tx.Order("id asc").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.User, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.ToDomain())
	}
	return out, total, nil
}
