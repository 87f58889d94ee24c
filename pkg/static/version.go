package static

// Set at build time with -ldflags "-X github.com/fabricops/fabricctl/pkg/static.Version=..."
var (
	Version = "dev"
	Commit  = "none"
)

// UserAgent sent with every Fabric API request
func UserAgent() string {
	return "fabricctl/" + Version
}
