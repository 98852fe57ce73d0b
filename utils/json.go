package utils

import (
	"encoding/json"
	"os"
)

// Marshal generic struct to JSON
func MarshalToJSON[T any](input T) (string, error) {
	jsonData, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

// Unmarshal JSON to generic struct
func UnmarshalFromJSON[T any](data []byte, output *T) error {
	return json.Unmarshal(data, output)
}

// ReadJSONFile decodes the file at path into a T.
func ReadJSONFile[T any](path string) (T, error) {
	var out T
	data, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	if err := UnmarshalFromJSON(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

// WriteJSONFile writes input as indented JSON, replacing the file.
func WriteJSONFile[T any](path string, input T) error {
	jsonData, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(jsonData, '\n'), 0o644)
}
