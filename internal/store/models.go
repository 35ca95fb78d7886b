package store

import "time"

type Admin struct {
	AdminID      string
	Email        string
	PasswordHash string
}

type DivisionUser struct {
	DivisionID   string
	AdminID      string
	Division     string
	Email        string
	PasswordHash string
	PhoneNumber  string
}

type InstitutionUser struct {
	InstitutionID      string
	DivisionID         string
	Email              string
	PasswordHash       string
	PhoneNumber        string
	Country            string
	State              string
	District           string
	Taluk              string
	InstitutionName    string
	VillageOrCity      string
	PID                string
	KhathaOrPropertyNo string
	NameOfKhathadar    string
	TypeOfBuilding     string
}

// PaymentCore holds the columns shared by institution payment records and
// admin-staged records; the transfer operation copies it verbatim.
type PaymentCore struct {
	PaymentYear        int
	ReceiptNoOrDate    string
	PropertyTax        int
	Rebate             int
	ServiceTax         int
	VacantAreaSqft     int
	BuildingAreaSqft   int
	TotalDimensionSqft int
	UsageOfBuilding    string
	DepartmentPaid     string
	Cesses             int
	Interest           int
	PenaltyArrears     int
	TotalAmount        int
	Remarks            string
	NumberOfFloors     int
	BasementFloorSqft  int
	GroundFloorSqft    int
	FirstFloorSqft     int
	SecondFloorSqft    int
	ThirdFloorSqft     int
}

type PaymentRecord struct {
	SlNo          int
	InstitutionID string
	PaymentCore
	ApprovalStatus bool
}

// PaymentRecordRow is a listing row: the record plus the joined owner name
// and the bill serial when an attachment exists.
type PaymentRecordRow struct {
	PaymentRecord
	InstitutionName string
	BillSlNo        *int
}

// StagedRecord is an admin-staged payment awaiting transfer. It carries its
// own property address because the owning institution is not registered yet.
type StagedRecord struct {
	SlNo int
	PaymentCore
	PropertyName       string
	Country            string
	State              string
	District           string
	Taluk              string
	VillageOrCity      string
	PID                string
	KhathaOrPropertyNo string
	NameOfKhathadar    string
	TypeOfBuilding     string
}

type StagedRecordRow struct {
	StagedRecord
	BillSlNo *int
}

type Bill struct {
	SlNo       int
	Filename   string
	Filetype   string
	Data       []byte
	UploadedAt time.Time
}

// UnpaidInstitution is a dashboard row: an institution with no payment
// record for the given year.
type UnpaidInstitution struct {
	InstitutionID      string
	InstitutionName    string
	KhathaOrPropertyNo string
	PhoneNumber        string
	Email              string
}

// ReportRow is one line of a comprehensive report: institution identity
// joined with one of its payment records (the record fields are zero when
// the institution has no payments yet).
type ReportRow struct {
	InstitutionID      string
	InstitutionName    string
	DivisionID         string
	KhathaOrPropertyNo string
	PID                string
	NameOfKhathadar    string
	HasPayment         bool
	Payment            PaymentRecord
}

// PropertySummary is one line of a local report.
type PropertySummary struct {
	InstitutionID      string
	InstitutionName    string
	KhathaOrPropertyNo string
	NameOfKhathadar    string
	PID                string
}
