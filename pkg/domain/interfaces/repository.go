package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Risk() RiskRepository
	Questionnaire() QuestionnaireRepository
	Cache() CacheRepository

	Close() error
}
