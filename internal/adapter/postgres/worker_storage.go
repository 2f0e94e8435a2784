package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/dnsoftware/mpm-mining-proxy/internal/dto"
)

// PostgresWorkerStorage последний снимок учета каждого воркера
type PostgresWorkerStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresWorkerStorage(ctx context.Context, dsn string) (*PostgresWorkerStorage, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &PostgresWorkerStorage{
		pool: pool,
	}, nil
}

// UpsertWorkerReport записать снимок воркера, более старые снимки не затирают новые
func (p *PostgresWorkerStorage) UpsertWorkerReport(ctx context.Context, r dto.WorkerReport) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO worker_reports (worker, wallet, worker_name, session_id, proxy_name, ip, protocol,
			share_index, accepted, rejected, fee_share_index, fee_share_accepted, dev_share_index, dev_share_accepted,
			hashrate, online, login_at, last_active_at, reported_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			ON CONFLICT (worker) DO UPDATE SET
			wallet = EXCLUDED.wallet, worker_name = EXCLUDED.worker_name, session_id = EXCLUDED.session_id,
			proxy_name = EXCLUDED.proxy_name, ip = EXCLUDED.ip, protocol = EXCLUDED.protocol,
			share_index = EXCLUDED.share_index, accepted = EXCLUDED.accepted, rejected = EXCLUDED.rejected,
			fee_share_index = EXCLUDED.fee_share_index, fee_share_accepted = EXCLUDED.fee_share_accepted,
			dev_share_index = EXCLUDED.dev_share_index, dev_share_accepted = EXCLUDED.dev_share_accepted,
			hashrate = EXCLUDED.hashrate, online = EXCLUDED.online, login_at = EXCLUDED.login_at,
			last_active_at = EXCLUDED.last_active_at, reported_at = EXCLUDED.reported_at
			WHERE worker_reports.reported_at <= EXCLUDED.reported_at`,
		r.Worker, r.Wallet, r.WorkerName, r.SessionID, r.ProxyName, r.IP, r.Protocol,
		int64(r.ShareIndex), int64(r.Accepted), int64(r.Rejected),
		int64(r.FeeShareIndex), int64(r.FeeShareAccepted), int64(r.DevShareIndex), int64(r.DevShareAccepted),
		int64(r.Hashrate), r.Online, unixTime(r.LoginAt), unixTime(r.LastActiveAt), time.UnixMilli(r.ReportedAt).UTC())

	return err
}

// GetWorkerReport последний сохраненный снимок воркера, false если записи нет
func (p *PostgresWorkerStorage) GetWorkerReport(ctx context.Context, worker string) (dto.WorkerReport, bool, error) {
	var (
		r                                  dto.WorkerReport
		share, acc, rej                    int64
		feeShare, feeAcc, devShare, devAcc int64
		hashrate                           int64
		loginAt, activeAt                  *time.Time
		reportedAt                         time.Time
	)

	err := p.pool.QueryRow(ctx, `SELECT worker, wallet, worker_name, session_id, proxy_name, ip, protocol,
			share_index, accepted, rejected, fee_share_index, fee_share_accepted, dev_share_index, dev_share_accepted,
			hashrate, online, login_at, last_active_at, reported_at
			FROM worker_reports WHERE worker = $1`, worker).
		Scan(&r.Worker, &r.Wallet, &r.WorkerName, &r.SessionID, &r.ProxyName, &r.IP, &r.Protocol,
			&share, &acc, &rej, &feeShare, &feeAcc, &devShare, &devAcc,
			&hashrate, &r.Online, &loginAt, &activeAt, &reportedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			// Если нет записей
			return dto.WorkerReport{}, false, nil
		}
		return dto.WorkerReport{}, false, err
	}

	r.ShareIndex, r.Accepted, r.Rejected = uint64(share), uint64(acc), uint64(rej)
	r.FeeShareIndex, r.FeeShareAccepted = uint64(feeShare), uint64(feeAcc)
	r.DevShareIndex, r.DevShareAccepted = uint64(devShare), uint64(devAcc)
	r.Hashrate = uint64(hashrate)
	if loginAt != nil {
		r.LoginAt = loginAt.Unix()
	}
	if activeAt != nil {
		r.LastActiveAt = activeAt.Unix()
	}
	r.ReportedAt = reportedAt.UnixMilli()

	return r, true, nil
}

func (p *PostgresWorkerStorage) Close() {
	p.pool.Close()
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
