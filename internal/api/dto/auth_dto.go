package dto

// Data Transfer Objects for authentication requests and responses

// SignupRequest: payload for user registration
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest: payload for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse: response payload after successful authentication. The
// field names are the ones the existing frontend expects.
type LoginResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}
