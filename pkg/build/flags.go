// SPDX-License-Identifier: MIT
//
// Package build exposes build metadata injected with linker flags:
//
//	go build -ldflags "-X voicefx/pkg/build.buildName=voicefx \
//	  -X voicefx/pkg/build.buildVersion=0.3.0 \
//	  -X voicefx/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	  -X voicefx/pkg/build.buildTime=$(date -u +%FT%TZ)"
//
// Binaries built without any flags report development defaults.
package build

import (
	"errors"
	"fmt"
)

const (
	DefaultName        = "voicefx"
	DefaultDescription = "Assistive-listening voice effects chain"
	devValue           = "dev"
)

type ldFlags struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Set by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = devFlags()
)

func devFlags() *ldFlags {
	return &ldFlags{
		Name:        DefaultName,
		Description: DefaultDescription,
		Time:        devValue,
		Commit:      devValue,
		Version:     devValue,
	}
}

// Initialize copies the linker flags into the build information. A binary
// with no flags at all keeps the development defaults; a partially stamped
// binary is an error.
func Initialize() error {
	if buildName == "" && buildTime == "" && buildCommit == "" && buildVersion == "" {
		*buildFlags = *devFlags()
		return nil
	}

	var errs []error
	for _, f := range []struct{ name, value string }{
		{"BuildName", buildName},
		{"BuildTime", buildTime},
		{"BuildCommit", buildCommit},
		{"BuildVersion", buildVersion},
	} {
		if f.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", f.name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	buildFlags.Name = buildName
	buildFlags.Time = buildTime
	buildFlags.Commit = buildCommit
	buildFlags.Version = buildVersion
	return nil
}

// GetBuildFlags returns the current build information.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String formats the information for version output.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
