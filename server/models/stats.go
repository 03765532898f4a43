package models

import "context"

type AdminStats struct {
	TotalUsers      int64      `json:"totalUsers"`
	ActivatedUsers  int64      `json:"activatedUsers"`
	PaidActivations int64      `json:"paidActivations"`
	QRCodes         int64      `json:"qrCodes"`
	ActiveQRCodes   int64      `json:"activeQrCodes"`
	Scans           int64      `json:"scans"`
	RevenuePaise    int64      `json:"revenuePaise"`
	Jobs            *JobsStats `json:"jobs"`
}

func CurrentAdminStats(ctx context.Context) (*AdminStats, error) {
	stats := AdminStats{}
	tx := db.WithContext(ctx)

	counts := []struct {
		model interface{}
		where []interface{}
		dest  *int64
	}{
		{&Profile{}, nil, &stats.TotalUsers},
		{&Profile{}, []interface{}{"is_paid = ?", true}, &stats.ActivatedUsers},
		{&Profile{}, []interface{}{"is_paid = ? AND is_free_customer = ?", true, false}, &stats.PaidActivations},
		{&QRCode{}, nil, &stats.QRCodes},
		{&QRCode{}, []interface{}{"is_active = ?", true}, &stats.ActiveQRCodes},
		{&ScanLog{}, nil, &stats.Scans},
	}

	for _, c := range counts {
		query := tx.Model(c.model)
		if c.where != nil {
			query = query.Where(c.where[0], c.where[1:]...)
		}
		if err := query.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	err := tx.Model(&Payment{}).Where("status = ?", PAYMENT_SUCCEEDED).
		Select("COALESCE(SUM(amount_paise), 0)").Scan(&stats.RevenuePaise).Error
	if err != nil {
		return nil, err
	}

	stats.Jobs, err = CurrentJobsStats()
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
