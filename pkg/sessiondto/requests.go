package sessiondto

type MoveRequest struct {
	From      string `json:"from" validate:"required,len=2"`
	To        string `json:"to" validate:"required,len=2"`
	Promotion string `json:"promotion,omitempty" validate:"omitempty,oneof=q r b n"`
}

type ChatRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type ChatResponse struct {
	Reply   string `json:"reply"`
	Hostile bool   `json:"hostile"`
}

type DifficultyRequest struct {
	Rating int `json:"rating" validate:"required,min=100,max=4000"`
}
