package model

// DirectoryKind selects which people directory to search
type DirectoryKind string

const (
	DirectoryPatients DirectoryKind = "patients"
	DirectoryDoctors  DirectoryKind = "doctors"
	DirectoryPhysios  DirectoryKind = "physios"
)

// IsValid checks the kind is a known directory
func (k DirectoryKind) IsValid() bool {
	switch k {
	case DirectoryPatients, DirectoryDoctors, DirectoryPhysios:
		return true
	}
	return false
}

// DirectoryEntry is a search hit used to fill booking identifiers.
type DirectoryEntry struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Contact     string `json:"contact"`
}
