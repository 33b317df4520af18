package semver

import (
	"fmt"
	"strconv"
	"strings"
)

type (
	// V is structured semantic version representation
	V struct {
		Major, Minor, Patch uint
		PreRelease          string
		BuildMetadata       []string
	}
)

func (v V) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.PreRelease != "" {
		s += "-" + v.PreRelease
	}
	if len(v.BuildMetadata) > 0 {
		s += "+" + strings.Join(v.BuildMetadata, ".")
	}
	return s
}

// Parse - parses "MAJOR.MINOR.PATCH[-PRERELEASE][+BUILD]" string, optional "v" prefix is allowed.
func Parse(s string) (V, error) {
	v := V{}
	rest := strings.TrimPrefix(s, "v")
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		if i == len(rest)-1 {
			return V{}, fmt.Errorf("semver.Parse: empty build metadata in %q", s)
		}
		v.BuildMetadata = strings.Split(rest[i+1:], ".")
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		v.PreRelease = rest[i+1:]
		if v.PreRelease == "" {
			return V{}, fmt.Errorf("semver.Parse: empty pre-release in %q", s)
		}
		rest = rest[:i]
	}
	core := strings.Split(rest, ".")
	if len(core) != 3 {
		return V{}, fmt.Errorf("semver.Parse: %q is not MAJOR.MINOR.PATCH", s)
	}
	nums := [3]uint{}
	for i, part := range core {
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return V{}, fmt.Errorf("semver.Parse: invalid number %q in %q", part, s)
		}
		nums[i] = uint(n)
	}
	v.Major, v.Minor, v.Patch = nums[0], nums[1], nums[2]
	return v, nil
}
