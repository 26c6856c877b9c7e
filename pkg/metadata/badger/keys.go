package badger

import (
	"github.com/google/uuid"
)

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so records and indexes live under prefixed
// keys. Index keys carry no value; their presence is the fact.
//
// Data Type          Prefix  Key Format                                 Value
// ===========================================================================
// Folder record      "d:"    d:<uuid>                                   Folder (JSON)
// File record        "f:"    f:<uuid>                                   File (JSON)
// Child index        "c:"    c:<owner>:<parent|root>:<kind>:<uuid>      empty
// Owner index        "o:"    o:<owner>:<kind>:<uuid>                    empty
// Download key       "k:"    k:<uuid>                                   DownloadKey (JSON)
//
// Listing the children of a folder is a prefix scan over
// "c:<owner>:<parent>:<kind>:". Root children use the literal "root" in the
// parent slot. The owner index serves quota sums and trash listings.

const (
	prefixFolder = "d:"
	prefixFile   = "f:"
	prefixChild  = "c:"
	prefixOwner  = "o:"
	prefixKey    = "k:"

	rootSlot = "root"
)

// kindSlot maps a node kind to its single-letter index segment.
func kindSlot(folder bool) string {
	if folder {
		return "d"
	}
	return "f"
}

func keyFolder(id uuid.UUID) []byte {
	return []byte(prefixFolder + id.String())
}

func keyFile(id uuid.UUID) []byte {
	return []byte(prefixFile + id.String())
}

func keyDownload(id uuid.UUID) []byte {
	return []byte(prefixKey + id.String())
}

func parentSlot(parent *uuid.UUID) string {
	if parent == nil {
		return rootSlot
	}
	return parent.String()
}

// keyChildPrefix is the scan prefix for one kind of child under parent.
//
// Format: "c:<owner>:<parent|root>:<kind>:"
func keyChildPrefix(owner uuid.UUID, parent *uuid.UUID, folder bool) []byte {
	return []byte(prefixChild + owner.String() + ":" + parentSlot(parent) + ":" + kindSlot(folder) + ":")
}

func keyChild(owner uuid.UUID, parent *uuid.UUID, folder bool, id uuid.UUID) []byte {
	return append(keyChildPrefix(owner, parent, folder), id.String()...)
}

// keyOwnerPrefix is the scan prefix for every node of one kind owned by owner.
//
// Format: "o:<owner>:<kind>:"
func keyOwnerPrefix(owner uuid.UUID, folder bool) []byte {
	return []byte(prefixOwner + owner.String() + ":" + kindSlot(folder) + ":")
}

func keyOwner(owner uuid.UUID, folder bool, id uuid.UUID) []byte {
	return append(keyOwnerPrefix(owner, folder), id.String()...)
}

// idFromIndexKey parses the trailing uuid of an index key.
func idFromIndexKey(key []byte) (uuid.UUID, error) {
	const uuidLen = 36
	if len(key) < uuidLen {
		return uuid.Nil, errShortKey
	}
	return uuid.Parse(string(key[len(key)-uuidLen:]))
}
