package links

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteDescriptors serializes a descriptor list to path. Used for both the
// full link list and the failure report.
func WriteDescriptors(path string, descriptors []Descriptor) error {
	if descriptors == nil {
		descriptors = []Descriptor{}
	}

	data, err := json.MarshalIndent(descriptors, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal descriptors: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write descriptors: %w", err)
	}

	return nil
}
