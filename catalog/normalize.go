// Package catalog turns hand-written catalog documents into one strict schema.
// Editors use French or English field names interchangeably (domaine/theme/
// domain, ordre/order, niveau/level, videos/videoIds, quiz/quizId); nothing
// past this package sees the aliases.
package catalog

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Parcours is a normalised catalog entry.
type Parcours struct {
	ID          string
	Domain      string
	Level       string
	Order       int
	Title       string
	Description string
	Videos      []Video
	Quiz        *Quiz
}

type Video struct {
	ID       string
	Order    int
	Title    string
	URL      string
	Duration float64
}

type Quiz struct {
	ID           string
	Title        string
	PassingScore float64
}

var aliases = map[string][]string{
	"id":           {"id", "_id", "parcoursId"},
	"domain":       {"domain", "domaine", "theme", "thème"},
	"level":        {"level", "niveau"},
	"order":        {"order", "ordre", "position"},
	"title":        {"title", "titre", "name", "nom"},
	"description":  {"description"},
	"videos":       {"videos", "videoIds", "video_ids"},
	"quiz":         {"quiz", "quizId", "quiz_id"},
	"url":          {"url", "videoUrl", "video_url", "lien"},
	"duration":     {"duration", "duree", "durée"},
	"passingScore": {"passingScore", "passing_score", "seuil"},
}

// pick returns the first alias of key present in m.
func pick(m map[string]interface{}, key string) (interface{}, bool) {
	for _, k := range aliases[key] {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Normalize reads the "parcours" list of a decoded document (or a bare list)
// and returns the entries sorted by domain, level, order then id.
func Normalize(doc interface{}) ([]Parcours, error) {
	var list []interface{}
	switch d := doc.(type) {
	case []interface{}:
		list = d
	case map[string]interface{}:
		raw, ok := d["parcours"]
		if !ok {
			return nil, errors.New("catalog: document has no \"parcours\" list")
		}
		if list, ok = raw.([]interface{}); !ok {
			return nil, errors.New("catalog: \"parcours\" is not a list")
		}
	default:
		return nil, errors.Errorf("catalog: unexpected document type %T", doc)
	}

	out := make([]Parcours, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("catalog: parcours #%d is not an object", i)
		}
		p, err := normalizeParcours(m)
		if err != nil {
			return nil, errors.Wrapf(err, "catalog: parcours #%d", i)
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ID < b.ID
	})
	return out, nil
}

func normalizeParcours(m map[string]interface{}) (Parcours, error) {
	var p Parcours
	var err error
	if p.ID, err = requiredString(m, "id"); err != nil {
		return p, err
	}
	if p.Domain, err = requiredString(m, "domain"); err != nil {
		return p, err
	}
	if p.Level, err = requiredString(m, "level"); err != nil {
		return p, err
	}
	if p.Order, err = optionalInt(m, "order"); err != nil {
		return p, err
	}
	p.Title = optionalString(m, "title")
	p.Description = optionalString(m, "description")

	if raw, ok := pick(m, "videos"); ok {
		list, ok := raw.([]interface{})
		if !ok {
			return p, errors.New("videos is not a list")
		}
		for i, item := range list {
			v, err := normalizeVideo(item)
			if err != nil {
				return p, errors.Wrapf(err, "video #%d", i)
			}
			if v.Order == 0 {
				v.Order = i + 1
			}
			p.Videos = append(p.Videos, v)
		}
		sort.SliceStable(p.Videos, func(i, j int) bool { return p.Videos[i].Order < p.Videos[j].Order })
	}

	if raw, ok := pick(m, "quiz"); ok {
		q, err := normalizeQuiz(raw)
		if err != nil {
			return p, errors.Wrap(err, "quiz")
		}
		p.Quiz = q
	}
	return p, nil
}

// normalizeVideo accepts a bare id or an object.
func normalizeVideo(item interface{}) (Video, error) {
	if id, ok := scalarString(item); ok {
		if id == "" {
			return Video{}, errors.New("empty video id")
		}
		return Video{ID: id}, nil
	}
	m, ok := item.(map[string]interface{})
	if !ok {
		return Video{}, errors.Errorf("unexpected video type %T", item)
	}
	var v Video
	var err error
	if v.ID, err = requiredString(m, "id"); err != nil {
		return v, err
	}
	if v.Order, err = optionalInt(m, "order"); err != nil {
		return v, err
	}
	if v.Duration, err = optionalFloat(m, "duration"); err != nil {
		return v, err
	}
	if v.Duration < 0 {
		return v, errors.New("duration must not be negative")
	}
	v.Title = optionalString(m, "title")
	v.URL = optionalString(m, "url")
	return v, nil
}

// normalizeQuiz accepts a bare id or an object. PassingScore defaults to 70.
func normalizeQuiz(raw interface{}) (*Quiz, error) {
	q := &Quiz{PassingScore: 70}
	if id, ok := scalarString(raw); ok {
		if id == "" {
			return nil, nil
		}
		q.ID = id
		return q, nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("unexpected quiz type %T", raw)
	}
	var err error
	if q.ID, err = requiredString(m, "id"); err != nil {
		return nil, err
	}
	q.Title = optionalString(m, "title")
	if _, ok := pick(m, "passingScore"); ok {
		if q.PassingScore, err = optionalFloat(m, "passingScore"); err != nil {
			return nil, err
		}
		if q.PassingScore <= 0 || q.PassingScore > 100 {
			return nil, errors.Errorf("passing score %v out of range", q.PassingScore)
		}
	}
	return q, nil
}

func requiredString(m map[string]interface{}, key string) (string, error) {
	s := optionalString(m, key)
	if s == "" {
		return "", errors.Errorf("missing %s", key)
	}
	return s, nil
}

func optionalString(m map[string]interface{}, key string) string {
	raw, ok := pick(m, key)
	if !ok {
		return ""
	}
	s, _ := scalarString(raw)
	return s
}

func scalarString(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	}
	return "", false
}

func optionalInt(m map[string]interface{}, key string) (int, error) {
	f, err := optionalFloat(m, key)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, errors.Errorf("%s must be a whole number", key)
	}
	return int(f), nil
}

func optionalFloat(m map[string]interface{}, key string) (float64, error) {
	raw, ok := pick(m, key)
	if !ok {
		return 0, nil
	}
	switch x := raw.(type) {
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, errors.Errorf("%s: %q is not a number", key, x)
		}
		return f, nil
	}
	return 0, errors.Errorf("%s: unexpected type %T", key, raw)
}
