package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Load reads a catalog file. ".json" files are decoded as JSON, anything else
// as YAML.
func Load(path string) ([]Parcours, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog")
	}
	return Parse(raw, strings.EqualFold(filepath.Ext(path), ".json"))
}

// Parse decodes and normalises a catalog document, then checks it.
func Parse(raw []byte, isJSON bool) ([]Parcours, error) {
	var doc interface{}
	if isJSON {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, errors.Wrap(err, "decode catalog json")
		}
	} else {
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, errors.Wrap(err, "decode catalog yaml")
		}
	}
	entries, err := Normalize(doc)
	if err != nil {
		return nil, err
	}
	if err := Check(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Check rejects ids reused across the catalog and parcours that carry neither
// videos nor a quiz, since no activity could ever complete them. Duplicate
// orders inside a group are legal; progression breaks the tie by id.
func Check(entries []Parcours) error {
	seen := make(map[string]string)
	claim := func(kind, id string) error {
		if prev, ok := seen[id]; ok {
			return errors.Errorf("catalog: id %q used by %s and %s", id, prev, kind)
		}
		seen[id] = kind
		return nil
	}
	for _, p := range entries {
		if err := claim("parcours", p.ID); err != nil {
			return err
		}
		if len(p.Videos) == 0 && p.Quiz == nil {
			return errors.Errorf("catalog: parcours %q has neither videos nor a quiz", p.ID)
		}
		for _, v := range p.Videos {
			if err := claim("video", v.ID); err != nil {
				return err
			}
		}
		if p.Quiz != nil {
			if err := claim("quiz", p.Quiz.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
