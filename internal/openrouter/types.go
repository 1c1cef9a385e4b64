package openrouter

// Message — одна реплика диалога чат-комплишена.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest — тело запроса к /chat/completions.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// APIError — структурированная ошибка в теле ответа OpenRouter.
// Код 429 означает исчерпание лимита и разрешает один повтор запасной моделью.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ChatResponse — тело ответа /chat/completions: либо choices с текстом,
// либо error с сообщением.
type ChatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *APIError `json:"error,omitempty"`
}
