package livechat_dto

type PostMessageRequest struct {
	Message string `json:"message" validate:"required,min=1,max=4000"`
}

type EndSessionRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
	Notes  string `json:"notes" validate:"omitempty,max=2000"`
}
