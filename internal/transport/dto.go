package transport

import "github.com/Skotchmaster/church_members/internal/models"

type CredentialsRequest struct {
	Email    string `json:"email"    validate:"required,email,max=120"`
	Password string `json:"password" validate:"required"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type UserResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Role: u.Role.String()}
}

type CheckResponse struct {
	IsLoggedIn bool          `json:"isLoggedIn"`
	User       *UserResponse `json:"user,omitempty"`
}

type CreateMemberRequest struct {
	Name       string `json:"name"       validate:"required,max=50"`
	BirthYear  int    `json:"birthYear"  validate:"required,gte=1850"`
	BirthMonth int    `json:"birthMonth" validate:"required,min=1,max=12"`
	BirthDay   int    `json:"birthDay"   validate:"required,min=1,max=31"`
	Phone      string `json:"phone"      validate:"required,max=20"`
	Gender     string `json:"gender"     validate:"max=10"`
	Address    string `json:"address"    validate:"max=100"`
	City       string `json:"city"       validate:"max=50"`
	State      string `json:"state"      validate:"max=2"`
	Zipcode    string `json:"zipcode"    validate:"max=10"`
	District   string `json:"district"   validate:"max=50"`
	Spouse     string `json:"spouse"     validate:"max=50"`
	Position   string `json:"position"   validate:"max=50"`
}

// UpdateMemberRequest is a partial update: nil fields are left alone.
type UpdateMemberRequest struct {
	Name       *string `json:"name"       validate:"omitnil,min=1,max=50"`
	BirthYear  *int    `json:"birthYear"  validate:"omitnil,gte=1850"`
	BirthMonth *int    `json:"birthMonth" validate:"omitnil,min=1,max=12"`
	BirthDay   *int    `json:"birthDay"   validate:"omitnil,min=1,max=31"`
	Phone      *string `json:"phone"      validate:"omitnil,min=1,max=20"`
	Gender     *string `json:"gender"     validate:"omitnil,max=10"`
	Address    *string `json:"address"    validate:"omitnil,max=100"`
	City       *string `json:"city"       validate:"omitnil,max=50"`
	State      *string `json:"state"      validate:"omitnil,max=2"`
	Zipcode    *string `json:"zipcode"    validate:"omitnil,max=10"`
	District   *string `json:"district"   validate:"omitnil,max=50"`
	Spouse     *string `json:"spouse"     validate:"omitnil,max=50"`
	Position   *string `json:"position"   validate:"omitnil,max=50"`
}

// MemberSummary is the search result shape.
type MemberSummary struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Gender string `json:"gender"`
	Spouse string `json:"spouse"`
}

func NewMemberSummary(m models.Member) MemberSummary {
	return MemberSummary{ID: m.ID, Name: m.Name, Phone: m.Phone, Gender: m.Gender, Spouse: m.Spouse}
}

type ListMembersQuery struct {
	Gender    string `query:"gender"`
	District  string `query:"district"`
	Position  string `query:"position"`
	SortBy    string `query:"sort_by"`
	SortOrder string `query:"sort_order"`
	Page      int    `query:"page"`
	PerPage   int    `query:"per_page"`
}
