package domain

// WalletAdditionalQuestion is one identity-verification question with its answer options.
type WalletAdditionalQuestion struct {
	Prompt string   `json:"prompt"`
	Type   string   `json:"type"`
	Answer []string `json:"answer"`
}

// BaseState is the generic loading/error state every stored form shape carries.
type BaseState struct {
	IsLoading     bool             `json:"isLoading,omitempty"`
	Errors        map[int64]string `json:"errors,omitempty"`
	ErrorFields   ErrorFields      `json:"errorFields,omitempty"`
	PendingAction string           `json:"pendingAction,omitempty"`
}

// WalletAdditionalDetails is the state of the wallet verification questionnaire.
type WalletAdditionalDetails struct {
	BaseState

	Questions              []WalletAdditionalQuestion `json:"questions,omitempty"`
	IDNumber               string                     `json:"idNumber,omitempty"`
	ErrorCode              string                     `json:"errorCode,omitempty"`
	AdditionalErrorMessage string                     `json:"additionalErrorMessage,omitempty"`
}
