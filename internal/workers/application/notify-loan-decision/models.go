// internal/workers/application/notify-loan-decision/models.go
package notifyloandecision

type Input struct {
	ApplicationID int64   `json:"applicationId"`
	ApplicantName string  `json:"applicantName"`
	TrustScore    float64 `json:"trustScore"`
	RiskCategory  string  `json:"riskCategory"`
	Approved      bool    `json:"approved"`
	ModelVersion  string  `json:"modelVersion"`
	OfficerID     string  `json:"officerId"`
}

// DecisionEvent is the SNS message body.
type DecisionEvent struct {
	Event         string  `json:"event"`
	ApplicationID int64   `json:"applicationId,omitempty"`
	ApplicantName string  `json:"applicantName"`
	TrustScore    float64 `json:"trustScore"`
	RiskCategory  string  `json:"riskCategory"`
	Decision      string  `json:"decision"`
	ModelVersion  string  `json:"modelVersion,omitempty"`
	OfficerID     string  `json:"officerId,omitempty"`
	DecidedAt     string  `json:"decidedAt"`
}

type Output struct {
	NotificationID   string `json:"notificationId"`
	NotificationSent bool   `json:"notificationSent"`
	Decision         string `json:"decision"`
	NotifiedAt       string `json:"notifiedAt"`
}
