package risk

import (
	"fmt"
	"time"

	rerrors "github.com/ducminhle1904/trade-risk-engine/internal/errors"
	"github.com/ducminhle1904/trade-risk-engine/internal/logger"
	"github.com/ducminhle1904/trade-risk-engine/internal/monitoring"
	"github.com/ducminhle1904/trade-risk-engine/pkg/types"
)

const (
	recentOwnershipDays  = 30
	feeChangeAlertPct    = 2.0
	excessiveOwnerScore  = 50
	pauseRiskLevel       = 8
	upgradeRiskLevel     = 9
	ownershipRiskLevel   = 6
	feeModificationLevel = 5
)

var balanceChangingFunctions = map[string]bool{
	"transfer":     true,
	"transferFrom": true,
	"mint":         true,
	"burn":         true,
}

// OwnerPowerMonitor flags contracts whose owner holds dangerous privileges
type OwnerPowerMonitor struct {
	config       OwnerPowerConfig
	owners       map[string]ContractOwner
	profiles     map[string]ContractProfile
	supplies     map[string]TokenSupply
	transactions map[string][]OwnerTransaction
	cache        *ttlCache[*OwnerPowerResult]
	log          *logger.Logger
	now          func() time.Time
}

// NewOwnerPowerMonitor creates a monitor with a validated config
func NewOwnerPowerMonitor(cfg OwnerPowerConfig, opts ...Option) (*OwnerPowerMonitor, error) {
	o := buildOptions("owner_power", opts)
	m := &OwnerPowerMonitor{
		owners:       make(map[string]ContractOwner),
		profiles:     make(map[string]ContractProfile),
		supplies:     make(map[string]TokenSupply),
		transactions: make(map[string][]OwnerTransaction),
		cache:        newTTLCache[*OwnerPowerResult](cfg.CacheTTL(), o.now),
		log:          o.log,
		now:          o.now,
	}
	if err := m.UpdateConfig(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateConfig validates and applies a new configuration, dropping cached verdicts
func (m *OwnerPowerMonitor) UpdateConfig(cfg OwnerPowerConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.config = cfg
	m.cache.SetTTL(cfg.CacheTTL())
	m.cache.Clear()
	return nil
}

// Config returns the active configuration
func (m *OwnerPowerMonitor) Config() OwnerPowerConfig {
	return m.config
}

// RegisterContractOwner records the current owner of a contract
func (m *OwnerPowerMonitor) RegisterContractOwner(contract string, owner ContractOwner) {
	contract = types.NormalizeAddress(contract)
	m.owners[contract] = owner
	m.cache.Delete(contract)
}

// ContractOwner returns the registered owner of a contract
func (m *OwnerPowerMonitor) ContractOwner(contract string) (ContractOwner, error) {
	contract = types.NormalizeAddress(contract)
	owner, ok := m.owners[contract]
	if !ok {
		return ContractOwner{}, rerrors.NewNotFoundError("owner_power", "ContractOwner", contract)
	}
	return owner, nil
}

// UpdateContractProfile stores the capabilities found by contract analysis
func (m *OwnerPowerMonitor) UpdateContractProfile(contract string, profile ContractProfile) {
	contract = types.NormalizeAddress(contract)
	m.profiles[contract] = profile
	m.cache.Delete(contract)
}

// UpdateTokenSupply sets the total supply that mint and burn amounts are measured against
func (m *OwnerPowerMonitor) UpdateTokenSupply(contract string, supply TokenSupply) {
	contract = types.NormalizeAddress(contract)
	m.supplies[contract] = supply
	m.cache.Delete(contract)
}

// AddOwnerTransaction records an owner transaction, keeping only the monitoring window
func (m *OwnerPowerMonitor) AddOwnerTransaction(contract string, tx OwnerTransaction) {
	contract = types.NormalizeAddress(contract)
	if tx.Timestamp.IsZero() {
		tx.Timestamp = m.now()
	}
	cutoff := m.now().Add(-m.config.MonitoringWindow())
	txs := append(m.transactions[contract], tx)
	kept := txs[:0]
	for _, t := range txs {
		if !t.Timestamp.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	m.transactions[contract] = kept
	m.cache.Delete(contract)
}

// MonitorContract returns the owner-power verdict for a contract
func (m *OwnerPowerMonitor) MonitorContract(contract string) (*OwnerPowerResult, error) {
	if contract == "" {
		return nil, rerrors.NewValidationError("owner_power", "MonitorContract", "contract address is required")
	}
	contract = types.NormalizeAddress(contract)
	if !m.config.Enabled {
		return &OwnerPowerResult{
			Contract: contract,
			Powers:   []OwnerPower{},
			Reasons:  []string{"Owner power monitoring disabled"},
		}, nil
	}

	cached, ok := m.cache.Get(contract)
	monitoring.RecordCacheLookup("owner_power", ok)
	if ok {
		m.log.Debug("Using cached owner power result for %s", contract)
		return cached.clone(), nil
	}

	checks := []func(string) *OwnerPower{
		m.checkMint,
		m.checkBurn,
		m.checkPause,
		m.checkUpgrade,
		m.checkOwnershipTransfer,
		m.checkFeeModification,
		m.checkBalanceManipulation,
	}
	result := &OwnerPowerResult{Contract: contract, Powers: []OwnerPower{}, Reasons: []string{}}
	var levels []int
	for _, check := range checks {
		if p := check(contract); p != nil {
			result.Powers = append(result.Powers, *p)
			result.Reasons = append(result.Reasons, p.Description)
			levels = append(levels, p.RiskLevel)
		}
	}
	result.RiskScore = sumToConfidence(levels)
	result.HasExcessivePowers = result.RiskScore >= excessiveOwnerScore

	if result.HasExcessivePowers {
		m.log.Warning("Contract %s has excessive owner powers with risk score %d", contract, result.RiskScore)
		monitoring.RecordDetection("owner_power")
	} else {
		m.log.Info("Contract %s analyzed, no excessive owner powers detected (risk score: %d)", contract, result.RiskScore)
	}

	m.cache.Set(contract, result)
	return result.clone(), nil
}

func (m *OwnerPowerMonitor) checkMint(contract string) *OwnerPower {
	profile := m.profiles[contract]
	if !profile.CanMint {
		return nil
	}
	return m.supplyPower(contract, OwnerPowerMint, "mint", profile.MaxMintAmount, m.config.MintCapabilityThreshold)
}

func (m *OwnerPowerMonitor) checkBurn(contract string) *OwnerPower {
	profile := m.profiles[contract]
	if !profile.CanBurn {
		return nil
	}
	return m.supplyPower(contract, OwnerPowerBurn, "burn", profile.MaxBurnAmount, m.config.BurnCapabilityThreshold)
}

// supplyPower flags a mint or burn capability covering more than threshold of the supply.
// Without a recorded supply the share is unknown and nothing is flagged.
func (m *OwnerPowerMonitor) supplyPower(contract string, kind OwnerPowerType, verb string, amount, threshold float64) *OwnerPower {
	supply, ok := m.supplies[contract]
	if !ok || supply.TotalSupply <= 0 {
		return nil
	}
	share := pct(amount, supply.TotalSupply)
	limit := threshold * 100
	if share <= limit {
		return nil
	}
	capitalised := "Mint"
	if kind == OwnerPowerBurn {
		capitalised = "Burn"
	}
	return &OwnerPower{
		Type:        kind,
		Description: fmt.Sprintf("Owner can %s %.2f%% of total supply (%.2f tokens)", verb, share, amount),
		RiskLevel:   truncSeverity(share / limit * 10),
		Evidence: []string{
			capitalised + " function detected in contract ABI",
			fmt.Sprintf("Maximum %s amount: %.2f tokens", verb, amount),
		},
	}
}

func (m *OwnerPowerMonitor) checkPause(contract string) *OwnerPower {
	if !m.profiles[contract].CanPause || !m.config.AlertOnPause {
		return nil
	}
	return &OwnerPower{
		Type:        OwnerPowerPause,
		Description: "Owner can pause contract functions",
		RiskLevel:   pauseRiskLevel,
		Evidence: []string{
			"Pause function detected in contract ABI",
			"Only owner can call pause function",
		},
	}
}

func (m *OwnerPowerMonitor) checkUpgrade(contract string) *OwnerPower {
	if !m.profiles[contract].CanUpgrade || !m.config.AlertOnUpgrade {
		return nil
	}
	return &OwnerPower{
		Type:        OwnerPowerUpgrade,
		Description: "Owner can upgrade contract code",
		RiskLevel:   upgradeRiskLevel,
		Evidence: []string{
			"Upgrade function detected in contract ABI",
			"Proxy pattern detected in contract",
		},
	}
}

func (m *OwnerPowerMonitor) checkOwnershipTransfer(contract string) *OwnerPower {
	owner, ok := m.owners[contract]
	if !ok {
		return nil
	}
	days := int(m.now().Sub(owner.Since).Hours() / 24)
	if days >= recentOwnershipDays {
		return nil
	}
	return &OwnerPower{
		Type:        OwnerPowerOwnershipTransfer,
		Description: fmt.Sprintf("Recent ownership transfer (%d days ago)", days),
		RiskLevel:   ownershipRiskLevel,
		Evidence: []string{
			fmt.Sprintf("Owner address: %s", owner.Address),
			fmt.Sprintf("Ownership since: %s", owner.Since.UTC().Format(time.RFC3339)),
		},
	}
}

func (m *OwnerPowerMonitor) checkFeeModification(contract string) *OwnerPower {
	profile := m.profiles[contract]
	if !profile.CanModifyFees || profile.MaxFeeChangePct <= feeChangeAlertPct {
		return nil
	}
	return &OwnerPower{
		Type:        OwnerPowerFeeModification,
		Description: fmt.Sprintf("Owner can modify fees by up to %.1f%%", profile.MaxFeeChangePct),
		RiskLevel:   feeModificationLevel,
		Evidence: []string{
			"SetFee function detected in contract ABI",
			fmt.Sprintf("Maximum fee change: %.1f%%", profile.MaxFeeChangePct),
		},
	}
}

func (m *OwnerPowerMonitor) checkBalanceManipulation(contract string) *OwnerPower {
	txs := m.transactions[contract]
	if len(txs) < m.config.MinTransactionCount {
		return nil
	}
	changes := 0
	for _, tx := range txs {
		if balanceChangingFunctions[tx.Function] {
			changes++
		}
	}
	share := pct(float64(changes), float64(len(txs)))
	if share <= m.config.BalanceChangeThresholdPct {
		return nil
	}
	return &OwnerPower{
		Type:        OwnerPowerBalanceManipulation,
		Description: fmt.Sprintf("High percentage of owner transactions involve balance changes (%.1f%%)", share),
		RiskLevel:   truncSeverity(share / m.config.BalanceChangeThresholdPct * 10),
		Evidence: []string{
			fmt.Sprintf("%d out of %d transactions involve balance changes", changes, len(txs)),
			"Owner frequently interacts with token balances",
		},
	}
}

// CachedResult returns the cached verdict for a contract while it is fresh
func (m *OwnerPowerMonitor) CachedResult(contract string) (*OwnerPowerResult, error) {
	contract = types.NormalizeAddress(contract)
	r, ok := m.cache.Get(contract)
	if !ok {
		return nil, rerrors.NewNotFoundError("owner_power", "CachedResult", contract)
	}
	return r.clone(), nil
}

// ClearCache drops every cached verdict
func (m *OwnerPowerMonitor) ClearCache() {
	m.cache.Clear()
}

func (r *OwnerPowerResult) clone() *OwnerPowerResult {
	cp := *r
	cp.Reasons = append([]string{}, r.Reasons...)
	cp.Powers = make([]OwnerPower, len(r.Powers))
	for i, p := range r.Powers {
		p.Evidence = append([]string(nil), p.Evidence...)
		cp.Powers[i] = p
	}
	return &cp
}
