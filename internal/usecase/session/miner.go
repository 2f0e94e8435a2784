package session

import (
	"fmt"
	"math/big"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dnsoftware/mpm-mining-proxy/internal/constants"
	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
	"github.com/dnsoftware/mpm-mining-proxy/internal/protocol"
)

// handleMiner сообщение майнера. Первое сообщение определяет диалект на всю сессию.
func (s *Session) handleMiner(frame []byte) error {
	var req protocol.Request

	if s.dialect == protocol.DialectUnknown {
		d, r, err := protocol.Detect(frame)
		if err != nil {
			return fmt.Errorf("%w: detect: %v", ErrProtocolViolation, err)
		}
		s.dialect = d
		s.worker.Protocol = d.String()
		s.logger.Debug("dialect detected", zap.String("protocol", d.String()))
		req = r
	} else {
		r, err := protocol.Parse(s.dialect, frame)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrProtocolViolation, err)
		}
		req = r
	}

	s.worker.Touch()

	switch req.GetMethod() {
	case protocol.MethodEthSubmitLogin:
		return s.handleEthLogin(req)
	case protocol.MethodSubscribe, protocol.MethodAuthorize:
		return s.handleStratumLogin(req, frame)
	case protocol.MethodEthSubmitWork, protocol.MethodSubmit:
		return s.handleSubmit(req)
	case protocol.MethodEthSubmitHashrate, protocol.MethodHashrate:
		return s.handleHashrate(req)
	case protocol.MethodEthGetWork:
		return s.handleGetWork(req)
	case protocol.MethodExtranonceSubscribe:
		return s.relay(req.GetID(), frame)
	}

	return fmt.Errorf("%w: unexpected method %q", ErrProtocolViolation, req.GetMethod())
}

// handleEthLogin логин уходит в пул со служебным id, майнер сразу получает подтверждение
func (s *Session) handleEthLogin(req protocol.Request) error {
	wallet, ok := req.GetWallet()
	if !ok {
		return fmt.Errorf("%w: login without wallet", ErrProtocolViolation)
	}
	name := req.GetWorkerName()
	if name == "" {
		name = constants.DefaultWorkerName
	}
	s.worker.Login(wallet, name, constants.WorkerSeparator)
	s.logger.Info("worker login", zap.String("worker", s.worker.ID), zap.String("protocol", s.dialect.String()))

	minerID := req.GetID()
	out := req
	if plain, ok := req.(*protocol.EthRequest); ok {
		out = plain.WithWorker(name)
	} else {
		out.SetWorkerName(name)
	}
	out.SetID(constants.LoginID)

	if err := s.writePoolRequest(out); err != nil {
		return err
	}
	return s.ack(minerID)
}

// handleStratumLogin subscribe/authorize уходят в пул как есть под id сессии, ответ пула возвращается майнеру с его id
func (s *Session) handleStratumLogin(req protocol.Request, frame []byte) error {
	if wallet, ok := req.GetWallet(); ok {
		name := req.GetWorkerName()
		if name == "" {
			name = constants.DefaultWorkerName
		}
		s.worker.Login(wallet, name, constants.WorkerSeparator)
		s.logger.Info("worker login", zap.String("worker", s.worker.ID), zap.String("protocol", s.dialect.String()))
	}
	return s.relay(req.GetID(), frame)
}

// relay id майнера заменяется на id из диапазона сессии, чтобы ответ пула не совпал со служебными id
func (s *Session) relay(minerID uint64, frame []byte) error {
	s.relaySeq++
	id := constants.RelayIDBase + s.relaySeq
	out, err := protocol.RestoreID(frame, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	s.relayIDs[id] = minerID
	if s.relaySeq > constants.FrameChanSize {
		delete(s.relayIDs, id-constants.FrameChanSize)
	}
	return s.writePool(out)
}

// handleSubmit шара по заданию комиссии уходит в пул комиссии, остальные в пул майнера.
// Майнер в любом случае сразу получает подтверждение со своим id.
func (s *Session) handleSubmit(req protocol.Request) error {
	jobID, ok := req.GetJobID()
	if !ok {
		return fmt.Errorf("%w: submit without job id", ErrProtocolViolation)
	}
	minerID := req.GetID()

	dest, _ := s.table.Lookup(jobID)
	route, hasRoute := s.routes[dest]

	switch {
	case dest == entity.DestinationProxyFee && hasRoute:
		if err := s.submitFee(route, req); err != nil {
			return err
		}
		s.worker.FeeShareIndexAdd()
		s.worker.FeeShareAccept()
	case dest == entity.DestinationDevFee && hasRoute:
		if err := s.submitFee(route, req); err != nil {
			return err
		}
		s.worker.DevShareIndexAdd()
		s.worker.DevShareAccept()
	default:
		s.worker.ShareIndexAdd()
		req.SetID(constants.SubmitID)
		if err := s.writePoolRequest(req); err != nil {
			return err
		}
	}

	return s.ack(minerID)
}

// submitFee подмена имени воркера на идентификатор комиссии и постановка в очередь пула комиссии
func (s *Session) submitFee(route *feeRoute, req protocol.Request) error {
	out := req
	switch r := req.(type) {
	case *protocol.EthRequest:
		out = r.WithWorker(route.Worker)
	case *protocol.EthWorkerRequest:
		r.SetWorkerName(route.Worker)
	default:
		out.SetWorkerName(protocol.WorkerKey(route.Wallet, route.Worker))
	}
	out.SetID(constants.FeeSubmitID)

	b, err := protocol.Encode(out)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if !route.Upstream.Submit(b) {
		s.logger.Warn("fee submit queue is full, share dropped", zap.String("destination", route.dest.String()))
	}
	return nil
}

// handleHashrate хешрейт уменьшается на долю комиссий
func (s *Session) handleHashrate(req protocol.Request) error {
	hashrate, ok := req.GetSubmitHashrate()
	if !ok {
		return fmt.Errorf("%w: bad hashrate", ErrProtocolViolation)
	}
	minerID := req.GetID()

	var keep float64 = 1
	if s.deps.Rates != nil {
		keep = s.deps.Rates.Fee().KeepRate()
	}
	scaled := scaleHashrate(hashrate, keep)

	s.worker.SetHashrate(scaled)
	s.logger.Debug("hashrate", zap.String("worker", s.worker.ID),
		zap.String("reported", humanize.SIWithDigits(float64(hashrate), 2, "H/s")),
		zap.String("forwarded", humanize.SIWithDigits(float64(scaled), 2, "H/s")))

	req.SetSubmitHashrate(scaled)
	req.SetID(constants.HashrateID)
	if err := s.writePoolRequest(req); err != nil {
		return err
	}
	return s.ack(minerID)
}

func scaleHashrate(hashrate uint64, keep float64) uint64 {
	h := decimal.NewFromBigInt(new(big.Int).SetUint64(hashrate), 0)
	return h.Mul(decimal.NewFromFloat(keep)).Floor().BigInt().Uint64()
}

// handleGetWork id майнера запоминается и подставляется в ответ пула
func (s *Session) handleGetWork(req protocol.Request) error {
	s.getWorkIDs = append(s.getWorkIDs, req.GetID())
	if len(s.getWorkIDs) > constants.FrameChanSize {
		s.getWorkIDs = s.getWorkIDs[1:]
	}
	req.SetID(constants.GetWorkID)
	return s.writePoolRequest(req)
}
