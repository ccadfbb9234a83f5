package domain

// Profile is the role-shaped part of a User. Exactly one concrete variant
// exists per role; the unexported method keeps the set closed.
type Profile interface {
	profileVariant()
}

// LandlordProfile describes a landlord or letting company.
type LandlordProfile struct {
	FullName           string `json:"fullName"           bson:"fullName"`
	NumberOfProperties int    `json:"numberOfProperties" bson:"numberOfProperties" validate:"min=0"`
}

// TenantProfile describes someone looking for a place to rent.
type TenantProfile struct {
	FullName       string  `json:"fullName"       bson:"fullName"`
	CurrentAddress string  `json:"currentAddress" bson:"currentAddress"`
	CurrentIncome  float64 `json:"currentIncome"  bson:"currentIncome"  validate:"min=0"`
	JobTitle       string  `json:"jobTitle"       bson:"jobTitle"`
	AreaToMove     string  `json:"areaToMove"     bson:"areaToMove"`
	MoveDate       string  `json:"moveDate"       bson:"moveDate"`
	Smoker         string  `json:"smoker"         bson:"smoker"         validate:"oneof=yes no"`
	Pets           int     `json:"pets"           bson:"pets"           validate:"min=0"`
	NumberOfPeople int     `json:"numberOfPeople" bson:"numberOfPeople" validate:"min=0"`
	Miles          float64 `json:"miles"          bson:"miles"          validate:"min=0"`
	Summary        string  `json:"summary"        bson:"summary"`
}

// ServiceProfile is shared by the Maintenance and Cleaner roles.
// Images holds placeholder references; there is no upload pipeline behind them.
type ServiceProfile struct {
	FullName     string   `json:"fullName"     bson:"fullName"`
	Availability []string `json:"availability" bson:"availability"`
	KeySkills    []string `json:"keySkills"    bson:"keySkills"`
	AreaToMove   string   `json:"areaToMove"   bson:"areaToMove"`
	Miles        float64  `json:"miles"        bson:"miles" validate:"min=0"`
	Summary      string   `json:"summary"      bson:"summary"`
	Images       []string `json:"images"       bson:"images"`
}

func (LandlordProfile) profileVariant() {}
func (TenantProfile) profileVariant()   {}
func (ServiceProfile) profileVariant()  {}

// ProfileMatchesRole reports whether p is the variant selected by role.
func ProfileMatchesRole(role Role, p Profile) bool {
	switch p.(type) {
	case LandlordProfile:
		return role == RoleLandlord
	case TenantProfile:
		return role == RoleTenant
	case ServiceProfile:
		return role == RoleMaintenance || role == RoleCleaner
	}
	return false
}
