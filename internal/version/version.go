package version

// Version is the current version of the ElmO binaries.
// This value can be overridden at build time using:
//	go build -ldflags="-X 'github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/version.Version=v1.0.0'"
var Version = "dev"
