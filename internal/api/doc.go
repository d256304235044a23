// Package api provides the budget REST API.
//
// Admin endpoints under /api/v1 authenticate with an X-API-Key header. The
// agent endpoints under /api/v1/accounting take an RS256 bearer token whose
// subject names the agent.
//
//	@title						Subscription Budget API
//	@version					1.0
//	@description				Budget approvals, allocations and usage of Azure subscriptions
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
//	@securityDefinitions.apikey	AgentToken
//	@in							header
//	@name						Authorization
//	@description				RS256 bearer token signed by the status, usage or controller agent.
package api
