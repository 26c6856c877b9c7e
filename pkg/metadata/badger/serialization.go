package badger

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/marmos91/dittodrive/pkg/metadata"
)

// Records are stored as JSON: readable with badger's CLI tools and tolerant
// of added fields.

var errShortKey = errors.New("index key too short")

func encodeFolder(folder *metadata.Folder) ([]byte, error) {
	data, err := json.Marshal(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to encode folder: %w", err)
	}
	return data, nil
}

func decodeFolder(data []byte) (*metadata.Folder, error) {
	var folder metadata.Folder
	if err := json.Unmarshal(data, &folder); err != nil {
		return nil, fmt.Errorf("failed to decode folder: %w", err)
	}
	return &folder, nil
}

func encodeFile(file *metadata.File) ([]byte, error) {
	data, err := json.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("failed to encode file: %w", err)
	}
	return data, nil
}

func decodeFile(data []byte) (*metadata.File, error) {
	var file metadata.File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode file: %w", err)
	}
	return &file, nil
}

func encodeDownloadKey(key *metadata.DownloadKey) ([]byte, error) {
	data, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("failed to encode download key: %w", err)
	}
	return data, nil
}

func decodeDownloadKey(data []byte) (*metadata.DownloadKey, error) {
	var key metadata.DownloadKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("failed to decode download key: %w", err)
	}
	return &key, nil
}
