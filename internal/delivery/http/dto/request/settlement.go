package request

type ConfirmPresenceRequest struct {
	Username string `json:"username"`
}

type VerifySessionCodeRequest struct {
	ProposerCode int `json:"proposer_code"`
	ReceiverCode int `json:"receiver_code"`
}

type InspectionRequest struct {
	Username string `json:"username"`
	Passed   *bool  `json:"passed"`
}
