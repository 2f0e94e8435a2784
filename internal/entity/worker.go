package entity

import "time"

// Worker учет одного подключенного майнера
// изменяется только горутиной владеющей сессии, поэтому без синхронизации
type Worker struct {
	ID               string    // полный идентификатор воркера wallet.worker
	Name             string    // имя воркера (без имени кошелька)
	Wallet           string    // кошелек майнера
	IP               string    // адрес майнера
	Protocol         string    // диалект протокола
	ShareIndex       uint64    // порядковый номер отправленной шары
	Accepted         uint64    // принято пулом
	Rejected         uint64    // отклонено пулом
	FeeShareIndex    uint64    // шары, перенаправленные на fee-кошелек прокси
	FeeShareAccepted uint64    //
	DevShareIndex    uint64    // шары, перенаправленные на кошелек разработчика
	DevShareAccepted uint64    //
	Hashrate         uint64    // хешрейт, заявленный майнером
	LoginAt          time.Time // время авторизации
	LastActiveAt     time.Time // время последней активности
	Online           bool
}

func NewWorker(ip string) *Worker {
	now := time.Now()
	return &Worker{
		IP:           ip,
		LastActiveAt: now,
		Online:       true,
	}
}

// Login заполнение данных воркера после авторизации
func (w *Worker) Login(wallet string, name string, separator string) {
	w.Wallet = wallet
	w.Name = name
	w.ID = wallet + separator + name
	w.LoginAt = time.Now()
	w.LastActiveAt = w.LoginAt
}

func (w *Worker) Touch() {
	w.LastActiveAt = time.Now()
}

func (w *Worker) ShareIndexAdd() {
	w.ShareIndex++
	w.Touch()
}

// ShareAccept засчитывается только если есть шара без ответа,
// так Accepted+Rejected никогда не превышает ShareIndex
func (w *Worker) ShareAccept() bool {
	if w.Accepted+w.Rejected >= w.ShareIndex {
		return false
	}
	w.Accepted++
	return true
}

func (w *Worker) ShareReject() bool {
	if w.Accepted+w.Rejected >= w.ShareIndex {
		return false
	}
	w.Rejected++
	return true
}

func (w *Worker) FeeShareIndexAdd() {
	w.FeeShareIndex++
	w.Touch()
}

func (w *Worker) FeeShareAccept() bool {
	if w.FeeShareAccepted >= w.FeeShareIndex {
		return false
	}
	w.FeeShareAccepted++
	return true
}

func (w *Worker) DevShareIndexAdd() {
	w.DevShareIndex++
	w.Touch()
}

func (w *Worker) DevShareAccept() bool {
	if w.DevShareAccepted >= w.DevShareIndex {
		return false
	}
	w.DevShareAccepted++
	return true
}

func (w *Worker) SetHashrate(h uint64) {
	w.Hashrate = h
	w.Touch()
}

// Pending шары, на которые пул еще не ответил
func (w *Worker) Pending() uint64 {
	return w.ShareIndex - w.Accepted - w.Rejected
}

func (w *Worker) IsLoggedIn() bool {
	return w.ID != ""
}
