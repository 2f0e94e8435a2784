package dto

import (
	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
)

// WorkerReport снимок учета воркера, отправляется в процесс управления (одна JSON строка)
type WorkerReport struct {
	SessionID        string `json:"sessionId"`        // идентификатор сессии
	ProxyName        string `json:"proxyName"`        // имя экземпляра прокси
	Worker           string `json:"worker"`           // полный идентификатор воркера wallet.worker
	WorkerName       string `json:"workerName"`       // имя воркера
	Wallet           string `json:"wallet"`           // кошелек
	IP               string `json:"ip"`               // адрес майнера
	Protocol         string `json:"protocol"`         // диалект
	ShareIndex       uint64 `json:"shareIndex"`       // отправлено шар
	Accepted         uint64 `json:"accepted"`         // принято
	Rejected         uint64 `json:"rejected"`         // отклонено
	FeeShareIndex    uint64 `json:"feeShareIndex"`    // шары на fee-кошелек
	FeeShareAccepted uint64 `json:"feeShareAccepted"` //
	DevShareIndex    uint64 `json:"devShareIndex"`    // шары разработчика
	DevShareAccepted uint64 `json:"devShareAccepted"` //
	Hashrate         uint64 `json:"hashrate"`         // хешрейт от майнера
	LoginAt          int64  `json:"loginAt"`          // время авторизации, unix секунды
	LastActiveAt     int64  `json:"lastActiveAt"`     // последняя активность, unix секунды
	Online           bool   `json:"online"`           //
	ReportedAt       int64  `json:"reportedAt"`       // время формирования снимка, в миллисекундах
}

// NewWorkerReport снимок текущего состояния воркера
func NewWorkerReport(sessionID string, proxyName string, w *entity.Worker, reportedAt int64) WorkerReport {
	report := WorkerReport{
		SessionID:        sessionID,
		ProxyName:        proxyName,
		Worker:           w.ID,
		WorkerName:       w.Name,
		Wallet:           w.Wallet,
		IP:               w.IP,
		Protocol:         w.Protocol,
		ShareIndex:       w.ShareIndex,
		Accepted:         w.Accepted,
		Rejected:         w.Rejected,
		FeeShareIndex:    w.FeeShareIndex,
		FeeShareAccepted: w.FeeShareAccepted,
		DevShareIndex:    w.DevShareIndex,
		DevShareAccepted: w.DevShareAccepted,
		Hashrate:         w.Hashrate,
		Online:           w.Online,
		ReportedAt:       reportedAt,
	}
	if !w.LoginAt.IsZero() {
		report.LoginAt = w.LoginAt.Unix()
	}
	if !w.LastActiveAt.IsZero() {
		report.LastActiveAt = w.LastActiveAt.Unix()
	}

	return report
}
