// internal/workers/application/send-application-report/models.go
package sendapplicationreport

type Input struct {
	Recipients []string `json:"recipients"`
	RiskFilter string   `json:"riskFilter"`
	Limit      int      `json:"limit"`
}

type Output struct {
	MessageID     string  `json:"reportMessageId"`
	Recipients    int     `json:"reportRecipients"`
	Total         int     `json:"reportTotal"`
	Approved      int     `json:"reportApproved"`
	Rejected      int     `json:"reportRejected"`
	AvgScore      float64 `json:"reportAvgScore"`
	RecordsListed int     `json:"reportRecordsListed"`
	SentAt        string  `json:"reportSentAt"`
}
