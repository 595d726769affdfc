package config

// NewMethodologyForTest creates a Methodology config for testing purposes
func NewMethodologyForTest(path string) *Methodology {
	return &Methodology{path: path}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, projectID, databaseID string) *Repository {
	return &Repository{
		backend:    backend,
		projectID:  projectID,
		databaseID: databaseID,
	}
}
