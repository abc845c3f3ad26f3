package session

// Identity — ответ session-сервиса на валидный токен.
// Права (департаменты/клиенты) применяет слой выборки сотрудников,
// не этот сервис; здесь они только проносятся в контекст.
type Identity struct {
	DisplayName        string   `json:"displayName"`
	HasFullAccess      bool     `json:"hasFullAccess"`
	AllowedDepartments []string `json:"allowedDepartments"`
	AllowedClients     []string `json:"allowedClients"`
}
