package db

// Column keys used for single-cell updates
const (
	EntriesStoreKey = "entries_sheet_id"
	EntryStatusKey  = "status"
)

// StoreHandle addresses one member's entries store (a sheet ID for the
// sheets backend, a UUID for postgres)
type StoreHandle string

// DirectoryRow represents one member row of the directory sheet.
// Sign-off date and entries sheet ID may be empty.
type DirectoryRow struct {
	FirstName      string `ssql_key:"first_name" ssql_header:"First name" ssql_type:"text" validate:"required"`
	LastName       string `ssql_key:"last_name" ssql_header:"Last name" ssql_type:"text" validate:"required"`
	UID            string `ssql_key:"uid" ssql_header:"Unique ID" ssql_type:"text" validate:"required"`
	SignUpDate     string `ssql_key:"signup_date" ssql_header:"Sign-up date" ssql_type:"date" validate:"required"`
	SignOffDate    string `ssql_key:"signoff_date" ssql_header:"Sign-off date" ssql_type:"date"`
	MembershipType string `ssql_key:"membership_type" ssql_header:"Membership type" ssql_type:"text" validate:"required"`
	EntriesStore   string `ssql_key:"entries_sheet_id" ssql_header:"Entries sheet ID" ssql_type:"text"`
}

// DirectoryRecord is a directory row with its position in the directory
type DirectoryRecord struct {
	Row int
	DirectoryRow
}

// EntryRow represents one activity row of a member's entries sheet
type EntryRow struct {
	Date     string `ssql_key:"date" ssql_header:"Date" ssql_type:"date"`
	Activity string `ssql_key:"type_of_action" ssql_header:"Type of action" ssql_type:"text"`
	Status   string `ssql_key:"status" ssql_header:"Status" ssql_type:"text"`
}

// EntryRecord is an entry row with the ID the store assigned to it
type EntryRecord struct {
	ID int
	EntryRow
}
