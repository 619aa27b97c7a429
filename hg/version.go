package hg

import (
	"fmt"
	"regexp"
	"strconv"
)

// Version is a parsed Mercurial version.
type Version struct {
	Major, Minor, Micro int
}

// MinVersion is the oldest hg this package supports without warnings.
var MinVersion = Version{Major: 1, Minor: 9}

var versionRe = regexp.MustCompile(`\(version (\d+)\.(\d+)(?:\.(\d+))?`)

// ParseVersion extracts the version from "hg version" output, e.g.
// "Mercurial Distributed SCM (version 6.5.2)".
func ParseVersion(output string) (Version, error) {
	m := versionRe.FindStringSubmatch(output)
	if m == nil {
		return Version{}, fmt.Errorf("no version in %q", firstLine(output))
	}
	var v Version
	v.Major, _ = strconv.Atoi(m[1])
	v.Minor, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		v.Micro, _ = strconv.Atoi(m[3])
	}
	return v, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Micro)
}

// AtLeast reports whether v >= o.
func (v Version) AtLeast(o Version) bool {
	if v.Major != o.Major {
		return v.Major > o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor > o.Minor
	}
	return v.Micro >= o.Micro
}

// Profile is the on-disk and template layout a Mercurial version uses.
// It is resolved once per version with ProfileFor.
type Profile int

const (
	// ProfileLegacy stores branch heads in .hg/branchheads.cache (hg < 2.5).
	ProfileLegacy Profile = iota
	// ProfileIntermediate stores them in .hg/cache/branchheads* (2.5 <= hg < 2.9).
	ProfileIntermediate
	// ProfileModern uses .hg/cache/branch2* with a status column (hg >= 2.9).
	ProfileModern
)

func (p Profile) String() string {
	switch p {
	case ProfileLegacy:
		return "legacy"
	case ProfileIntermediate:
		return "intermediate"
	case ProfileModern:
		return "modern"
	}
	return "unknown"
}

// ProfileFor resolves the profile for a version. The zero Version (not
// detected) maps to ProfileModern.
func ProfileFor(v Version) Profile {
	switch {
	case v == Version{}:
		return ProfileModern
	case !v.AtLeast(Version{Major: 2, Minor: 5}):
		return ProfileLegacy
	case !v.AtLeast(Version{Major: 2, Minor: 9}):
		return ProfileIntermediate
	}
	return ProfileModern
}

// BranchCache names a branch-head cache file under .hg.
type BranchCache struct {
	Path         string
	StatusColumn bool // lines are "<hash> <status> <name>"
}

var (
	modernCaches = []BranchCache{
		{Path: "cache/branch2-served", StatusColumn: true},
		{Path: "cache/branch2-visible", StatusColumn: true},
		{Path: "cache/branch2-base", StatusColumn: true},
		{Path: "cache/branch2", StatusColumn: true},
	}
	intermediateCaches = []BranchCache{
		{Path: "cache/branchheads-served"},
		{Path: "cache/branchheads"},
	}
	legacyCaches = []BranchCache{
		{Path: "branchheads.cache"},
	}
)

// BranchCaches returns the cache files to probe, newest layout first.
// A profile never probes layouts newer than its own.
func (p Profile) BranchCaches() []BranchCache {
	var out []BranchCache
	switch p {
	case ProfileModern:
		out = append(out, modernCaches...)
		fallthrough
	case ProfileIntermediate:
		out = append(out, intermediateCaches...)
		fallthrough
	default:
		out = append(out, legacyCaches...)
	}
	return out
}

// FreshMarker is the path whose absence means the repository has no commits.
func (p Profile) FreshMarker() string {
	if p == ProfileLegacy {
		return "branchheads.cache"
	}
	return "cache"
}

// Capabilities are the command-line features of one hg version.
type Capabilities struct {
	Version Version
	Profile Profile

	// ParentRevTokens is true when templates support {p1rev}/{p2rev}.
	// Without it the ambiguous {parents} token is used.
	ParentRevTokens bool
	// JoinFunction is true when templates support join(list, sep).
	JoinFunction bool
	// Graft is true when hg graft exists (and may leave graftstate).
	Graft bool
}

// CapabilitiesFor resolves what a version can do.
func CapabilitiesFor(v Version) Capabilities {
	if v == (Version{}) {
		v = Version{Major: 99}
	}
	return Capabilities{
		Version:         v,
		Profile:         ProfileFor(v),
		ParentRevTokens: v.AtLeast(Version{Major: 2, Minor: 4}),
		JoinFunction:    v.AtLeast(Version{Major: 2, Minor: 3}),
		Graft:           v.AtLeast(Version{Major: 2, Minor: 0}),
	}
}

// Warning returns ErrUnsupportedVersion wrapped with the version when the
// capabilities are below MinVersion, nil otherwise.
func (c Capabilities) Warning() error {
	if !c.Version.AtLeast(MinVersion) {
		return fmt.Errorf("%w: %s (need %s)", ErrUnsupportedVersion, c.Version, MinVersion)
	}
	return nil
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return s[:i]
		}
	}
	return s
}
