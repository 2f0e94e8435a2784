package config

import (
	"fmt"
	"sync"

	"github.com/dnsoftware/mpm-mining-proxy/internal/dto"
	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
)

// Store текущие настройки, которые могут меняться во время работы (ставки комиссий).
// Читатели получают копию под коротким RLock.
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Fee ставки комиссий для планировщика и пересчета хешрейта
func (s *Store) Fee() entity.FeeRates {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return entity.FeeRates{
		Proxy: entity.FeeRate{
			Enabled:   s.cfg.Fee.Enabled(),
			Rate:      s.cfg.Fee.Rate,
			Algorithm: entity.FeeAlgorithm(s.cfg.Fee.Algorithm),
		},
		Dev: entity.FeeRate{
			Enabled:   s.cfg.DevFee.Enabled(),
			Rate:      s.cfg.DevFee.Rate,
			Algorithm: entity.FeeAlgorithm(s.cfg.DevFee.Algorithm),
		},
		MinRate: s.cfg.Fee.MinRate,
	}
}

// Update изменение копии настроек, при ошибке текущие настройки не меняются
func (s *Store) Update(fn func(cfg *Config) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	if err := fn(&next); err != nil {
		return err
	}
	s.cfg = next
	return nil
}

// ApplyUpdate изменение ставок комиссий из процесса управления
func (s *Store) ApplyUpdate(u dto.SettingsUpdate) error {
	return s.Update(func(cfg *Config) error {
		if u.FeeRate != nil {
			if err := ValidateRate(*u.FeeRate); err != nil {
				return fmt.Errorf("feeRate: %w", err)
			}
			cfg.Fee.Rate = *u.FeeRate
		}
		if u.FeeAlgorithm != nil {
			if err := ValidateAlgorithm(*u.FeeAlgorithm); err != nil {
				return fmt.Errorf("feeAlgorithm: %w", err)
			}
			cfg.Fee.Algorithm = *u.FeeAlgorithm
		}
		if u.DevRate != nil {
			if err := ValidateRate(*u.DevRate); err != nil {
				return fmt.Errorf("devRate: %w", err)
			}
			cfg.DevFee.Rate = *u.DevRate
		}
		if cfg.Fee.Rate+cfg.DevFee.Rate > 1 {
			return fmt.Errorf("fee rate %v + dev rate %v > 1", cfg.Fee.Rate, cfg.DevFee.Rate)
		}
		return nil
	})
}
