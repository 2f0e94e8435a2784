package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dnsoftware/mpm-mining-proxy/internal/constants"
	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
	"github.com/dnsoftware/mpm-mining-proxy/internal/protocol"
)

// handlePool сообщение пула майнера
func (s *Session) handlePool(frame []byte) error {
	msg, err := protocol.ParsePoolMessage(frame)
	if err != nil {
		return fmt.Errorf("%w: pool: %v", ErrProtocolViolation, err)
	}

	if msg.HasID {
		if minerID, ok := s.relayIDs[msg.ID]; ok {
			delete(s.relayIDs, msg.ID)
			out, err := protocol.RestoreID(msg.Raw, minerID)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrSerialization, err)
			}
			return s.writeMiner(out)
		}
	}

	switch msg.Kind {
	case protocol.PoolSetDifficulty:
		s.raiseDifficulty(msg.Difficulty)
		return s.writeMiner(msg.Raw)
	case protocol.PoolJob:
		return s.handleJob(msg)
	case protocol.PoolAck:
		return s.handleAck(msg)
	}

	return s.writeMiner(msg.Raw)
}

// raiseDifficulty сложность только растет. Рост означает новую эпоху: таблица маршрутизации
// сбрасывается, ожидающие fee-задания с меньшей сложностью выбрасываются.
func (s *Session) raiseDifficulty(difficulty float64) {
	if difficulty <= s.difficulty {
		return
	}
	s.logger.Debug("difficulty raised", zap.Float64("from", s.difficulty), zap.Float64("to", difficulty))
	s.difficulty = difficulty
	s.table.Reset()
	for _, r := range s.routes {
		if n := r.pending.DropBelow(difficulty); n > 0 {
			s.logger.Debug("stale fee jobs dropped", zap.String("destination", r.dest.String()), zap.Int("count", n))
		}
	}
}

// handleJob выбор направления для задания пула. Если выбран пул комиссии и для него есть
// подходящее задание, майнер получает его вместо задания своего пула.
func (s *Session) handleJob(msg protocol.PoolMessage) error {
	job := msg.Job
	s.jobKind = job.Kind
	s.raiseDifficulty(job.Difficulty)

	minerID, restore := uint64(0), false
	if msg.HasID && msg.ID == constants.GetWorkID && len(s.getWorkIDs) > 0 {
		minerID, restore = s.getWorkIDs[0], true
		s.getWorkIDs = s.getWorkIDs[1:]
	}

	s.jobIdx++
	dest := s.deps.Scheduler.Decide(s.jobIdx)
	if route, ok := s.routes[dest]; ok {
		if feeJob, ok := route.pending.Pop(s.jobKind, s.table); ok {
			out, err := protocol.RenderJob(s.dialect, feeJob, minerID)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrSerialization, err)
			}
			if err := s.writeMiner(out); err != nil {
				return err
			}
			s.table.Mark(feeJob.ID, dest)
			return nil
		}
	}

	frame := msg.Raw
	if restore {
		restored, err := protocol.RestoreID(frame, minerID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		frame = restored
	}
	if err := s.writeMiner(frame); err != nil {
		return err
	}
	s.table.Mark(job.ID, entity.DestinationOrdinary)
	return nil
}

// handleAck ответы на служебные id обрабатываются прокси, остальные возвращаются майнеру
func (s *Session) handleAck(msg protocol.PoolMessage) error {
	if !msg.HasID {
		return s.writeMiner(msg.Raw)
	}

	switch msg.ID {
	case constants.SubmitID:
		if msg.Accepted {
			s.worker.ShareAccept()
		} else {
			s.worker.ShareReject()
			s.logger.Debug("share rejected", zap.String("worker", s.worker.ID))
		}
	case constants.LoginID:
		if !msg.Accepted {
			s.logger.Warn("pool rejected login", zap.String("worker", s.worker.ID))
		}
	case constants.HashrateID, constants.FeeSubmitID:
		s.logger.Debug("pool ack", zap.Uint64("id", msg.ID), zap.Bool("accepted", msg.Accepted))
	default:
		return s.writeMiner(msg.Raw)
	}
	return nil
}

// queueFeeJob задание пула комиссии ставится в очередь до следующего решения в его пользу
func (s *Session) queueFeeJob(dest entity.Destination, job entity.Job) {
	route, ok := s.routes[dest]
	if !ok {
		return
	}
	if job.Difficulty > 0 && job.Difficulty < s.difficulty {
		return
	}
	if s.table.Contains(job.ID) {
		return
	}
	route.pending.Push(job)
}
