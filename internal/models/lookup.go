package models

import (
	"time"

	"github.com/google/uuid"
)

// Reference data used to classify requests and compose control numbers.
// Plain CRUD rows; no workflow behavior lives here.

type Division struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Code      string    `gorm:"type:varchar(20);not null;uniqueIndex" json:"code"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	IsActive  bool      `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Division) TableName() string { return "divisions" }

type Department struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DivisionID uuid.UUID `gorm:"type:uuid;not null;index" json:"divisionId"`
	Code       string    `gorm:"type:varchar(20);not null" json:"code"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	IsActive   bool      `gorm:"default:true" json:"isActive"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Department) TableName() string { return "departments" }

type Section struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DepartmentID uuid.UUID `gorm:"type:uuid;not null;index" json:"departmentId"`
	Code         string    `gorm:"type:varchar(20);not null" json:"code"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	IsActive     bool      `gorm:"default:true" json:"isActive"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Section) TableName() string { return "sections" }

type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Code      string    `gorm:"type:varchar(20);not null;uniqueIndex" json:"code"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	IsActive  bool      `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Category) TableName() string { return "categories" }

type Subcategory struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CategoryID uuid.UUID `gorm:"type:uuid;not null;index" json:"categoryId"`
	Code       string    `gorm:"type:varchar(20);not null" json:"code"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	IsActive   bool      `gorm:"default:true" json:"isActive"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Subcategory) TableName() string { return "subcategories" }

type Unit struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Code      string    `gorm:"type:varchar(20);not null;uniqueIndex" json:"code"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	IsActive  bool      `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Unit) TableName() string { return "units" }

// SetFields applies the shared editable columns. One method per table keeps
// the generic lookup handler free of reflection.

func (d *Division) SetFields(code, name string, isActive *bool) {
	d.Code, d.Name = code, name
	if isActive != nil {
		d.IsActive = *isActive
	}
}

func (d *Department) SetFields(code, name string, isActive *bool) {
	d.Code, d.Name = code, name
	if isActive != nil {
		d.IsActive = *isActive
	}
}

func (s *Section) SetFields(code, name string, isActive *bool) {
	s.Code, s.Name = code, name
	if isActive != nil {
		s.IsActive = *isActive
	}
}

func (c *Category) SetFields(code, name string, isActive *bool) {
	c.Code, c.Name = code, name
	if isActive != nil {
		c.IsActive = *isActive
	}
}

func (s *Subcategory) SetFields(code, name string, isActive *bool) {
	s.Code, s.Name = code, name
	if isActive != nil {
		s.IsActive = *isActive
	}
}

func (u *Unit) SetFields(code, name string, isActive *bool) {
	u.Code, u.Name = code, name
	if isActive != nil {
		u.IsActive = *isActive
	}
}
