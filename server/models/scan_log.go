package models

import (
	"context"

	"github.com/Daskott/kavach/utils"
	"github.com/google/uuid"
)

const (
	MAX_SCAN_IP_LENGTH         = 100
	MAX_SCAN_USER_AGENT_LENGTH = 500
)

// ScanLog is an append only record of a public page view.
type ScanLog struct {
	BaseModel
	Token     string     `json:"token" gorm:"index;not null"`
	ProfileID *uuid.UUID `json:"profileId,omitempty" gorm:"type:uuid;index"`
	VehicleID *uuid.UUID `json:"vehicleId,omitempty" gorm:"type:uuid;index"`
	IP        string     `json:"ip" gorm:"size:100"`
	UserAgent string     `json:"userAgent" gorm:"size:500"`
}

func AppendScanLog(ctx context.Context, scanLog *ScanLog) error {
	scanLog.IP = utils.Truncate(scanLog.IP, MAX_SCAN_IP_LENGTH)
	scanLog.UserAgent = utils.Truncate(scanLog.UserAgent, MAX_SCAN_USER_AGENT_LENGTH)

	return db.WithContext(ctx).Create(scanLog).Error
}

func CountScanLogs(ctx context.Context, token string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&ScanLog{}).Where("token = ?", token).Count(&count).Error

	return count, err
}
