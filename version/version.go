package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version = TMQuerySemVer
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}

const (
	// TMQuerySemVer is the current version of tmquery.
	// It's the Semantic Version of the software.
	TMQuerySemVer = "0.1.0"

	// GrammarVersion versions the query language. It changes whenever a
	// query that parsed before would parse differently or not at all.
	GrammarVersion = 1
)
