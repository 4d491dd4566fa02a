package user

import (
	"time"

	"team-directory/internal/domain"
)

// UserModel 远端目录在本地库中的镜像（扁平化 address / company）
type UserModel struct {
	ID       int    `gorm:"primaryKey;autoIncrement:false"`
	Name     string `gorm:"size:128;not null;index"`
	Username string `gorm:"size:64;not null"`
	Email    string `gorm:"size:255;not null"`
	Phone    string `gorm:"size:64"`
	Website  string `gorm:"size:255"`

	Street  string `gorm:"size:255"`
	Suite   string `gorm:"size:64"`
	City    string `gorm:"size:128"`
	Zipcode string `gorm:"size:32"`
	GeoLat  string `gorm:"size:32"`
	GeoLng  string `gorm:"size:32"`

	CompanyName        string `gorm:"size:255"`
	CompanyCatchPhrase string `gorm:"size:255"`
	CompanyBS          string `gorm:"column:company_bs;size:255"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "directory_users" }

func FromDomain(u domain.User) UserModel {
	return UserModel{
		ID:                 u.ID,
		Name:               u.Name,
		Username:           u.Username,
		Email:              u.Email,
		Phone:              u.Phone,
		Website:            u.Website,
		Street:             u.Address.Street,
		Suite:              u.Address.Suite,
		City:               u.Address.City,
		Zipcode:            u.Address.Zipcode,
		GeoLat:             u.Address.Geo.Lat,
		GeoLng:             u.Address.Geo.Lng,
		CompanyName:        u.Company.Name,
		CompanyCatchPhrase: u.Company.CatchPhrase,
		CompanyBS:          u.Company.BS,
	}
}

func (m UserModel) ToDomain() domain.User {
	return domain.User{
		ID:       m.ID,
		Name:     m.Name,
		Username: m.Username,
		Email:    m.Email,
		Phone:    m.Phone,
		Website:  m.Website,
		Address: domain.Address{
			Street:  m.Street,
			Suite:   m.Suite,
			City:    m.City,
			Zipcode: m.Zipcode,
			Geo:     domain.Geo{Lat: m.GeoLat, Lng: m.GeoLng},
		},
		Company: domain.Company{
			Name:        m.CompanyName,
			CatchPhrase: m.CompanyCatchPhrase,
			BS:          m.CompanyBS,
		},
	}
}
