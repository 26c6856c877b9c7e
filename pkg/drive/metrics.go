package drive

import "time"

// Operation names reported to Metrics.
const (
	opCreateFolder = "create_folder"
	opMoveFolder   = "move_folder"
	opMoveFile     = "move_file"
	opRename       = "rename"
	opTrash        = "trash"
	opRestore      = "restore"
	opPurge        = "purge"
	opEmptyTrash   = "empty_trash"
	opStoreFile    = "store_file"
	opReadFile     = "read_file"
	opMintKey      = "mint_download_key"
	opResolveKey   = "resolve_download_key"
)

// Metrics observes engine operations. Optional: a nil Metrics disables
// collection.
type Metrics interface {
	// ObserveOperation records one public operation with its outcome
	ObserveOperation(op string, duration time.Duration, err error)

	// RecordUpload records the size of an accepted upload
	RecordUpload(bytes int64)

	// RecordPurge records nodes and bytes permanently removed
	RecordPurge(folders, files int, bytes int64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(op string, duration time.Duration, err error) {}
func (noopMetrics) RecordUpload(bytes int64)                                      {}
func (noopMetrics) RecordPurge(folders, files int, bytes int64)                   {}
