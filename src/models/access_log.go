package models

import "time"

const AccessLogsTable = "access_logs"

// AccessLog records one successful operator login.
type AccessLog struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	IPAddress string `json:"ip_address"`
	LoggedAt  string `json:"logged_at"`
}

func NewAccessLog(email, ip string, at time.Time) AccessLog {
	return AccessLog{Email: email, IPAddress: ip, LoggedAt: at.UTC().Format(time.RFC3339)}
}

func (a AccessLog) ToRow() Row {
	return Row{"email": a.Email, "ip_address": a.IPAddress, "logged_at": a.LoggedAt}
}

func AccessLogFromRow(row Row) AccessLog {
	return AccessLog{
		ID:        RowInt64(row, "id"),
		Email:     RowString(row, "email"),
		IPAddress: RowString(row, "ip_address"),
		LoggedAt:  RowString(row, "logged_at"),
	}
}
