package ff

// Snapshot file names in the data directory.
const (
	SnapshotToken              = "access_token.json"
	SnapshotEnvironments       = "environments.json"
	SnapshotSpaces             = "spaces.json"
	SnapshotWorkbooks          = "workbooks.json"
	SnapshotUsers              = "users.json"
	SnapshotGuests             = "guests.json"
	SnapshotSubscriptionTokens = "subscription_tokens.json"
	SnapshotBlueprints         = "blueprints_list.csv"
	SignalEnvironmentExists    = "environment_exists.txt"
	SignalSelectedEnvironment  = "selected_environment.txt"
	SignalSecretKey            = "secret_key.txt"
)

// ExportableSnapshots lists the files copied by Export, in upload order.
var ExportableSnapshots = []string{
	SnapshotEnvironments,
	SnapshotSpaces,
	SnapshotWorkbooks,
	SnapshotUsers,
	SnapshotGuests,
	SnapshotSubscriptionTokens,
	SnapshotBlueprints,
}

// SnapshotInfo describes one written snapshot file.
type SnapshotInfo struct {
	Name     string
	Checksum string // SHA-256 of the written bytes, lowercase hex
	Size     int64
}

// SnapshotStore reads and overwrites the files that chain commands together.
// Writes replace the whole file; there is no merge and no locking.
type SnapshotStore interface {
	// ReadJSON decodes the named snapshot into v. A missing file yields an
	// error wrapping ErrSnapshotNotFound that names the attempted path.
	ReadJSON(name string, v any) error

	// WriteJSON encodes v as indented JSON and overwrites the named snapshot.
	WriteJSON(name string, v any) (*SnapshotInfo, error)

	// ReadRaw returns the bytes of the named file.
	ReadRaw(name string) ([]byte, error)

	// WriteRaw overwrites the named file with data.
	WriteRaw(name string, data []byte) (*SnapshotInfo, error)

	// Exists reports whether the named file is present.
	Exists(name string) bool

	// Path returns a human-readable location for the named file.
	Path(name string) string
}
