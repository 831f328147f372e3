package config

import (
	"fmt"
	"maps"
	"os"
	"reflect"
	"slices"

	"gopkg.in/yaml.v3"
)

// Merge overlays the configuration files in order and returns the combined
// YAML document. Mappings merge key by key, any other value in a later file
// replaces the earlier one, and an explicit null removes the key. With
// conflictError set, replacing a value by a different one is an error.
func Merge(filenames []string, conflictError bool) ([]byte, error) {
	result := map[string]any{}
	for _, f := range filenames {
		bs, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %v: %w", f, err)
		}
		var doc map[string]any
		if err := yaml.Unmarshal(bs, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal configuration file %v: %w", f, err)
		}
		if err := overlay(result, doc, "", conflictError); err != nil {
			return nil, fmt.Errorf("%v: %w", f, err)
		}
	}

	bs, err := yaml.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal merged configuration: %w", err)
	}
	return bs, nil
}

func overlay(dst, src map[string]any, path string, conflictError bool) error {
	for _, key := range slices.Sorted(maps.Keys(src)) { // Sorted for deterministic errors.
		value := src[key]
		if value == nil {
			delete(dst, key)
			continue
		}

		existing, ok := dst[key]
		if !ok {
			dst[key] = value
			continue
		}

		existingMap, ok1 := existing.(map[string]any)
		valueMap, ok2 := value.(map[string]any)
		if ok1 && ok2 {
			if err := overlay(existingMap, valueMap, path+"/"+key, conflictError); err != nil {
				return err
			}
			continue
		}

		if conflictError && !reflect.DeepEqual(existing, value) {
			return fmt.Errorf("conflict for config path %s", path+"/"+key)
		}
		dst[key] = value
	}
	return nil
}
