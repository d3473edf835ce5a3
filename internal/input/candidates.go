package input

// PlatformCandidates returns the drivers native to this OS, best first.
func PlatformCandidates() []Candidate {
	return platformCandidates()
}
