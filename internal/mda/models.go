package mda

import "time"

// Type classifies an organizational unit.
type Type string

const (
	TypeMinistry   Type = "ministry"
	TypeDepartment Type = "department"
	TypeAgency     Type = "agency"
)

// TenderStatus is the lifecycle state of a procurement opportunity.
type TenderStatus string

const (
	TenderDraft     TenderStatus = "draft"
	TenderPublished TenderStatus = "published"
	TenderClosed    TenderStatus = "closed"
	TenderEvaluated TenderStatus = "evaluated"
	TenderAwarded   TenderStatus = "awarded"
)

// Settings carries an MDA's procurement configuration.
type Settings struct {
	ProcurementThresholds map[string]float64 `json:"procurementThresholds"`
	AllowedCategories     []string           `json:"allowedCategories"`
	CustomWorkflows       []string           `json:"customWorkflows"`
	BudgetYear            string             `json:"budgetYear"`
	TotalBudget           float64            `json:"totalBudget"`
}

// MDA is a ministry, department or agency owning tenders, admins and users.
type MDA struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         Type      `json:"type"`
	Description  string    `json:"description"`
	ParentMDA    string    `json:"parentMDA,omitempty"`
	ContactEmail string    `json:"contactEmail"`
	ContactPhone string    `json:"contactPhone"`
	Address      string    `json:"address"`
	HeadOfMDA    string    `json:"headOfMDA"`
	Settings     Settings  `json:"settings"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	IsActive     bool      `json:"isActive"`
}

// Admin is an administrator account subordinate to one MDA. UserID is
// synthesized at creation; there is no backing identity system.
type Admin struct {
	ID          string    `json:"id"`
	MDAID       string    `json:"mdaId"`
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
	IsActive    bool      `json:"isActive"`
}

// User is a regular portal account scoped to one MDA.
type User struct {
	ID          string    `json:"id"`
	MDAID       string    `json:"mdaId"`
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
	IsActive    bool      `json:"isActive"`
}

// Tender is a procurement opportunity published by an MDA.
type Tender struct {
	ID          string       `json:"id"`
	MDAID       string       `json:"mdaId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Value       float64      `json:"value"`
	Status      TenderStatus `json:"status"`
	PublishDate time.Time    `json:"publishDate,omitempty"`
	CloseDate   time.Time    `json:"closeDate,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Profile is a user-directory projection joined onto admin/user listings.
type Profile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Department  string `json:"department"`
}

// AdminView is an Admin enriched with its MDA name and directory profile.
// The join is recomputed on every listing; nothing is cached.
type AdminView struct {
	Admin
	MDAName string  `json:"mdaName"`
	Profile Profile `json:"profile"`
}

// UserView is a User enriched with its MDA name and directory profile.
type UserView struct {
	User
	MDAName string  `json:"mdaName"`
	Profile Profile `json:"profile"`
}

// Patch is a partial MDA update; nil fields are left untouched.
type Patch struct {
	Name         *string
	Description  *string
	ContactEmail *string
	ContactPhone *string
	Address      *string
	HeadOfMDA    *string
	Settings     *Settings
	IsActive     *bool
}

// TenderPatch is a partial tender update; nil fields are left untouched.
type TenderPatch struct {
	Title       *string
	Description *string
	Category    *string
	Value       *float64
	Status      *TenderStatus
	PublishDate *time.Time
	CloseDate   *time.Time
}
