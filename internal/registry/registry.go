// Package registry loads the camera catalogue: where each camera's page
// lives, how to start its video and which regions to cut from a screenshot.
//
// The catalogue file is JSON or YAML keyed by camera id:
//
//	{"cam1": {"link": "https://...", "play_element": "//video", "element_type": "XPATH",
//	          "dimensions": {"1": {"x1": 0, "x2": 640, "y1": 0, "y2": 360, "alias": "north"}}}}
package registry

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raoulx24/camrelay/internal/errs"
)

// Trigger locates the element that starts playback.
type Trigger struct {
	Selector string
	Kind     string // ID, XPATH, CSS_SELECTOR, NAME, CLASS_NAME, TAG_NAME, LINK_TEXT
}

// Region is a rectangle cut from the screenshot, in pixels, plus the alias
// the backend files the cropped image under.
type Region struct {
	X1    int    `yaml:"x1"`
	X2    int    `yaml:"x2"`
	Y1    int    `yaml:"y1"`
	Y2    int    `yaml:"y2"`
	Alias string `yaml:"alias"`
}

// Valid reports whether the rectangle has a positive area.
func (r Region) Valid() bool {
	return r.X1 >= 0 && r.Y1 >= 0 && r.X2 > r.X1 && r.Y2 > r.Y1
}

// Camera is one capture target. It is immutable for the duration of a round.
type Camera struct {
	ID      string
	Link    string
	Trigger Trigger
	Regions map[string]Region
}

// RegionNames returns region names in a stable order: numerically when the
// names are numbers, lexically otherwise.
func (c Camera) RegionNames() []string {
	names := make([]string, 0, len(c.Regions))
	for name := range c.Regions {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, errA := strconv.Atoi(names[i])
		b, errB := strconv.Atoi(names[j])
		if errA == nil && errB == nil {
			return a < b
		}
		if (errA == nil) != (errB == nil) {
			return errA == nil
		}
		return names[i] < names[j]
	})
	return names
}

// Alias returns the backend alias of a region, falling back to its name.
func (c Camera) Alias(region string) string {
	if r, ok := c.Regions[region]; ok && r.Alias != "" {
		return r.Alias
	}
	return region
}

// Registry is the parsed catalogue.
type Registry struct {
	cameras map[string]Camera
}

type rawCamera struct {
	Link        string            `yaml:"link"`
	PlayElement string            `yaml:"play_element"`
	ElementType string            `yaml:"element_type"`
	Dimensions  map[string]Region `yaml:"dimensions"`
}

// Load reads and parses the catalogue at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrConfig, "registry", "read", path, err)
	}
	return Parse(data)
}

// Parse decodes a catalogue. JSON is accepted as YAML.
func Parse(data []byte) (*Registry, error) {
	var raw map[string]rawCamera
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errs.Wrap(errs.ErrConfig, "registry", "parse", "", err)
	}

	reg := &Registry{cameras: make(map[string]Camera, len(raw))}
	for id, rc := range raw {
		cam := Camera{
			ID:   id,
			Link: strings.TrimSpace(rc.Link),
			Trigger: Trigger{
				Selector: rc.PlayElement,
				Kind:     strings.ToUpper(strings.TrimSpace(rc.ElementType)),
			},
			Regions: rc.Dimensions,
		}
		if err := validate(cam); err != nil {
			return nil, err
		}
		reg.cameras[id] = cam
	}
	return reg, nil
}

func validate(cam Camera) error {
	if err := checkName(cam.ID); err != nil {
		return errs.Configf("camera id %q: %v", cam.ID, err)
	}
	if cam.Link == "" {
		return errs.Configf("camera %q: link is required", cam.ID)
	}
	if cam.Trigger.Selector == "" || cam.Trigger.Kind == "" {
		return errs.Configf("camera %q: play_element and element_type are required", cam.ID)
	}
	if len(cam.Regions) == 0 {
		return errs.Configf("camera %q: at least one dimension is required", cam.ID)
	}
	for name, r := range cam.Regions {
		if err := checkName(name); err != nil {
			return errs.Configf("camera %q region %q: %v", cam.ID, name, err)
		}
		if !r.Valid() {
			return errs.Configf("camera %q region %q: invalid rectangle x1=%d x2=%d y1=%d y2=%d", cam.ID, name, r.X1, r.X2, r.Y1, r.Y2)
		}
	}
	return nil
}

// checkName rejects ids and region names that cannot be used as a single
// path element of the storage tree.
func checkName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("must not be empty")
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("must not contain path separators")
	case strings.Contains(name, ".."):
		return fmt.Errorf("must not contain \"..\"")
	}
	return nil
}

// Len is the number of cameras in the catalogue.
func (r *Registry) Len() int {
	return len(r.cameras)
}

// Get returns the camera with id.
func (r *Registry) Get(id string) (Camera, bool) {
	cam, ok := r.cameras[id]
	return cam, ok
}

// IDs lists every camera id, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.cameras))
	for id := range r.cameras {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve returns the cameras named in ids, in that order. A missing camera
// is a configuration error.
func (r *Registry) Resolve(ids []string) ([]Camera, error) {
	out := make([]Camera, 0, len(ids))
	var missing []string
	for _, id := range ids {
		cam, ok := r.cameras[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, cam)
	}
	if len(missing) > 0 {
		return nil, errs.Configf("cameras not found in registry: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// Describe is a one-line summary used in logs and CLI output.
func (c Camera) Describe() string {
	return fmt.Sprintf("%s (%d regions, %s=%s)", c.ID, len(c.Regions), c.Trigger.Kind, c.Trigger.Selector)
}
