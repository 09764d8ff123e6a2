package dto

type JiraWebhookResponse struct {
	Status   string `json:"status"`
	IssueKey string `json:"issueKey"`
}
