package version

// GitVersion is set at build time with -ldflags "-X github.com/wormhole-foundation/suigov/version.GitVersion=..."
var GitVersion string

const BuildVersion = "v0.1.0"

func String() string {
	if GitVersion == "" {
		return BuildVersion
	}
	return BuildVersion + "+" + GitVersion
}
