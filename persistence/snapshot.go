// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package persistence

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/luxfi/nockbridge/basedlist"
	"github.com/luxfi/nockbridge/bridgetypes"
	"github.com/luxfi/nockbridge/config"
	"github.com/luxfi/nockbridge/ledger"
)

// stateKey is the single key the kernel's snapshot is stored under. There
// is exactly one BridgeState per bridge instance, so one fixed key is
// sufficient; the Database abstraction exists to let the host choose the
// storage engine, not to multiplex multiple bridges.
var stateKey = []byte("bridge_state")

// stateVersion is the snapshot wire version: one prefix byte ahead of the
// JSON payload, so LoadState can reject a snapshot written by an
// incompatible future version outright rather than misdecoding it (spec
// §6, "persisted state layout").
const stateVersion byte = 1

func marshalSnapshot(v interface{}) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1+len(payload))
	out[0] = stateVersion
	copy(out[1:], payload)
	return out, nil
}

func unmarshalSnapshot(data []byte, v interface{}) error {
	if len(data) < 1 {
		return fmt.Errorf("persistence: empty snapshot")
	}
	if data[0] != stateVersion {
		return fmt.Errorf("persistence: unsupported snapshot version %d", data[0])
	}
	return json.Unmarshal(data[1:], v)
}

func hexOf(b []byte) string { return hex.EncodeToString(b) }

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

func hash32(s string) (out [32]byte) {
	copy(out[:], mustHex(s))
	return out
}

func addr20(s string) (out [20]byte) {
	copy(out[:], mustHex(s))
	return out
}

type nodeDTO struct {
	NodeID    string `json:"node_id"`
	EthPubkey string `json:"eth_pubkey"`
	NockKey   string `json:"nock_key"`
}

func nodeToDTO(n config.Node) nodeDTO {
	return nodeDTO{
		NodeID:    hexOf(n.NodeID[:]),
		EthPubkey: hexOf(n.EthPubkey[:]),
		NockKey:   hexOf(n.NockKey[:]),
	}
}

func nodeFromDTO(d nodeDTO) config.Node {
	var n config.Node
	copy(n.NodeID[:], mustHex(d.NodeID))
	n.EthPubkey = addr20(d.EthPubkey)
	n.NockKey = hash32(d.NockKey)
	return n
}

type nodeConfigDTO struct {
	NodeID    string    `json:"node_id"`
	Nodes     []nodeDTO `json:"nodes"`
	MyEthKey  string    `json:"my_eth_key"`
	MyNockKey string    `json:"my_nock_key"`
}

type depositDTO struct {
	TxID         string  `json:"tx_id"`
	NameFirst    string  `json:"name_first"`
	NameLast     string  `json:"name_last"`
	Dest         *string `json:"dest,omitempty"`
	AmountToMint uint64  `json:"amount_to_mint"`
	Fee          uint64  `json:"fee"`
}

func depositToDTO(d bridgetypes.Deposit) depositDTO {
	out := depositDTO{
		TxID:         hexOf(d.TxID[:]),
		NameFirst:    hexOf(d.Name.First[:]),
		NameLast:     hexOf(d.Name.Last[:]),
		AmountToMint: d.AmountToMint,
		Fee:          d.Fee,
	}
	if d.Dest != nil {
		s := hexOf((*d.Dest)[:])
		out.Dest = &s
	}
	return out
}

func depositFromDTO(d depositDTO) bridgetypes.Deposit {
	out := bridgetypes.Deposit{
		TxID:         hash32(d.TxID),
		Name:         bridgetypes.Name{First: hash32(d.NameFirst), Last: hash32(d.NameLast)},
		AmountToMint: d.AmountToMint,
		Fee:          d.Fee,
	}
	if d.Dest != nil {
		addr := bridgetypes.EvmAddr(addr20(*d.Dest))
		out.Dest = &addr
	}
	return out
}

type withdrawalDTO struct {
	EventID   []uint64 `json:"event_id"`
	NameFirst string   `json:"name_first"`
	NameLast  string   `json:"name_last"`
	Amount    uint64   `json:"amount"`
}

func withdrawalToDTO(w bridgetypes.Withdrawal) withdrawalDTO {
	return withdrawalDTO{
		EventID:   []uint64(w.EventID),
		NameFirst: hexOf(w.Name.First[:]),
		NameLast:  hexOf(w.Name.Last[:]),
		Amount:    w.Amount,
	}
}

func withdrawalFromDTO(d withdrawalDTO) bridgetypes.Withdrawal {
	return bridgetypes.Withdrawal{
		EventID: basedlist.List(d.EventID),
		Name:    bridgetypes.Name{First: hash32(d.NameFirst), Last: hash32(d.NameLast)},
		Amount:  d.Amount,
	}
}

type depositSettlementDTO struct {
	EventID         []uint64 `json:"event_id"`
	CounterFirst    string   `json:"counterpart_first"`
	CounterLast     string   `json:"counterpart_last"`
	AsOf            string   `json:"as_of"`
	NockHeight      uint64   `json:"nock_height"`
	Dest            string   `json:"dest"`
	SettledAmount   uint64   `json:"settled_amount"`
	Nonce           uint64   `json:"nonce"`
}

func depositSettlementToDTO(s bridgetypes.DepositSettlement) depositSettlementDTO {
	return depositSettlementDTO{
		EventID:       []uint64(s.EventID),
		CounterFirst:  hexOf(s.CounterpartName.First[:]),
		CounterLast:   hexOf(s.CounterpartName.Last[:]),
		AsOf:          hexOf(s.AsOf[:]),
		NockHeight:    s.NockHeight,
		Dest:          hexOf(s.Dest[:]),
		SettledAmount: s.SettledAmount,
		Nonce:         s.Nonce,
	}
}

func depositSettlementFromDTO(d depositSettlementDTO) bridgetypes.DepositSettlement {
	return bridgetypes.DepositSettlement{
		EventID:         basedlist.List(d.EventID),
		CounterpartName: bridgetypes.Name{First: hash32(d.CounterFirst), Last: hash32(d.CounterLast)},
		AsOf:            hash32(d.AsOf),
		NockHeight:      d.NockHeight,
		Dest:            bridgetypes.EvmAddr(addr20(d.Dest)),
		SettledAmount:   d.SettledAmount,
		Nonce:           d.Nonce,
	}
}

type withdrawalSettlementDTO struct {
	EventID    []uint64 `json:"event_id"`
	NameFirst  string   `json:"name_first"`
	NameLast   string   `json:"name_last"`
	AsOf       string   `json:"as_of"`
	BaseHeight uint64   `json:"base_height"`
	Amount     uint64   `json:"amount"`
}

func withdrawalSettlementToDTO(s bridgetypes.WithdrawalSettlement) withdrawalSettlementDTO {
	return withdrawalSettlementDTO{
		EventID:    []uint64(s.EventID),
		NameFirst:  hexOf(s.Name.First[:]),
		NameLast:   hexOf(s.Name.Last[:]),
		AsOf:       hexOf(s.AsOf[:]),
		BaseHeight: s.BaseHeight,
		Amount:     s.Amount,
	}
}

func withdrawalSettlementFromDTO(d withdrawalSettlementDTO) bridgetypes.WithdrawalSettlement {
	return bridgetypes.WithdrawalSettlement{
		EventID:    basedlist.List(d.EventID),
		Name:       bridgetypes.Name{First: hash32(d.NameFirst), Last: hash32(d.NameLast)},
		AsOf:       hash32(d.AsOf),
		BaseHeight: d.BaseHeight,
		Amount:     d.Amount,
	}
}

type nockBlockDTO struct {
	Height                uint64                    `json:"height"`
	BlockID               string                    `json:"block_id"`
	Deposits              []depositDTO              `json:"deposits"`
	WithdrawalSettlements []withdrawalSettlementDTO `json:"withdrawal_settlements"`
	Prev                  string                    `json:"prev"`
}

func nockBlockToDTO(b bridgetypes.NockBlock) nockBlockDTO {
	out := nockBlockDTO{Height: b.Height, BlockID: hexOf(b.BlockID[:]), Prev: hexOf(b.Prev[:])}
	for _, d := range b.Deposits {
		out.Deposits = append(out.Deposits, depositToDTO(d))
	}
	for _, s := range b.WithdrawalSettlements {
		out.WithdrawalSettlements = append(out.WithdrawalSettlements, withdrawalSettlementToDTO(s))
	}
	// Map iteration order is randomized; sort so two encodings of the same
	// logical state always produce the same bytes (spec §6, "load/save
	// round-trips byte-identical").
	sort.Slice(out.Deposits, func(i, j int) bool {
		return out.Deposits[i].NameFirst+out.Deposits[i].NameLast < out.Deposits[j].NameFirst+out.Deposits[j].NameLast
	})
	sort.Slice(out.WithdrawalSettlements, func(i, j int) bool {
		return out.WithdrawalSettlements[i].NameFirst+out.WithdrawalSettlements[i].NameLast <
			out.WithdrawalSettlements[j].NameFirst+out.WithdrawalSettlements[j].NameLast
	})
	return out
}

func nockBlockFromDTO(d nockBlockDTO) bridgetypes.NockBlock {
	out := bridgetypes.NockBlock{
		Height:                d.Height,
		BlockID:               hash32(d.BlockID),
		Prev:                  hash32(d.Prev),
		Deposits:              make(map[bridgetypes.Name]bridgetypes.Deposit, len(d.Deposits)),
		WithdrawalSettlements: make(map[bridgetypes.Name]bridgetypes.WithdrawalSettlement, len(d.WithdrawalSettlements)),
	}
	for _, dep := range d.Deposits {
		dd := depositFromDTO(dep)
		out.Deposits[dd.Name] = dd
	}
	for _, s := range d.WithdrawalSettlements {
		ss := withdrawalSettlementFromDTO(s)
		out.WithdrawalSettlements[ss.Name] = ss
	}
	return out
}

type batchBlockDTO struct {
	Height uint64   `json:"height"`
	BID    []uint64 `json:"bid"`
	Parent []uint64 `json:"parent"`
}

type baseBlockBatchDTO struct {
	FirstHeight        uint64                    `json:"first_height"`
	LastHeight         uint64                    `json:"last_height"`
	Blocks             []batchBlockDTO           `json:"blocks"`
	Withdrawals        []withdrawalDTO           `json:"withdrawals"`
	DepositSettlements []depositSettlementDTO    `json:"deposit_settlements"`
	Prev               string                    `json:"prev"`
}

func baseBlockBatchToDTO(b bridgetypes.BaseBlockBatch) baseBlockBatchDTO {
	out := baseBlockBatchDTO{FirstHeight: b.FirstHeight, LastHeight: b.LastHeight, Prev: hexOf(b.Prev[:])}
	for h, bb := range b.Blocks {
		out.Blocks = append(out.Blocks, batchBlockDTO{Height: h, BID: []uint64(bb.BID), Parent: []uint64(bb.Parent)})
	}
	for _, w := range b.Withdrawals {
		out.Withdrawals = append(out.Withdrawals, withdrawalToDTO(w))
	}
	for _, s := range b.DepositSettlements {
		out.DepositSettlements = append(out.DepositSettlements, depositSettlementToDTO(s))
	}
	return out
}

func baseBlockBatchFromDTO(d baseBlockBatchDTO) bridgetypes.BaseBlockBatch {
	out := bridgetypes.BaseBlockBatch{
		FirstHeight:        d.FirstHeight,
		LastHeight:         d.LastHeight,
		Prev:               hash32(d.Prev),
		Blocks:             make(map[uint64]bridgetypes.BatchBlock, len(d.Blocks)),
		Withdrawals:        make(map[string]bridgetypes.Withdrawal, len(d.Withdrawals)),
		DepositSettlements: make(map[string]bridgetypes.DepositSettlement, len(d.DepositSettlements)),
	}
	for _, bb := range d.Blocks {
		out.Blocks[bb.Height] = bridgetypes.BatchBlock{BID: basedlist.List(bb.BID), Parent: basedlist.List(bb.Parent)}
	}
	for _, w := range d.Withdrawals {
		ww := withdrawalFromDTO(w)
		out.Withdrawals[bridgetypes.BasedListKey(ww.EventID)] = ww
	}
	for _, s := range d.DepositSettlements {
		ss := depositSettlementFromDTO(s)
		out.DepositSettlements[bridgetypes.BasedListKey(ss.EventID)] = ss
	}
	return out
}


type holdDTO struct {
	Hash   string `json:"hash"`
	Height uint64 `json:"height"`
}

func holdToDTO(h *bridgetypes.Hold) *holdDTO {
	if h == nil {
		return nil
	}
	return &holdDTO{Hash: hexOf(h.Hash[:]), Height: h.Height}
}

func holdFromDTO(d *holdDTO) *bridgetypes.Hold {
	if d == nil {
		return nil
	}
	return &bridgetypes.Hold{Hash: hash32(d.Hash), Height: d.Height}
}

type depositEntryDTO struct {
	NockHash string     `json:"nock_hash"`
	Deposit  depositDTO `json:"deposit"`
}

type withdrawalEntryDTO struct {
	BaseHash   string        `json:"base_hash"`
	Withdrawal withdrawalDTO `json:"withdrawal"`
}

type hashStateDTO struct {
	NockHashchain                 []nockBlockDTO        `json:"nock_hashchain"`
	LastNockBlock                 string                `json:"last_nock_block"`
	NockNextHeight                uint64                `json:"nock_next_height"`
	BaseHashchain                 []baseBlockBatchDTO   `json:"base_hashchain"`
	LastBaseBlocks                string                `json:"last_base_blocks"`
	BaseNextHeight                uint64                `json:"base_next_height"`
	NockHold                      *holdDTO              `json:"nock_hold,omitempty"`
	BaseHold                      *holdDTO              `json:"base_hold,omitempty"`
	UnsettledDeposits             []depositEntryDTO     `json:"unsettled_deposits"`
	UnconfirmedSettledDeposits    []depositEntryDTO     `json:"unconfirmed_settled_deposits"`
	UnsettledWithdrawals          []withdrawalEntryDTO  `json:"unsettled_withdrawals"`
	UnconfirmedSettledWithdrawals []withdrawalEntryDTO   `json:"unconfirmed_settled_withdrawals"`
}

func hashStateToDTO(h *bridgetypes.HashState) hashStateDTO {
	out := hashStateDTO{
		LastNockBlock:   hexOf(h.LastNockBlock[:]),
		NockNextHeight:  h.NockNextHeight,
		LastBaseBlocks:  hexOf(h.LastBaseBlocks[:]),
		BaseNextHeight:  h.BaseNextHeight,
		NockHold:        holdToDTO(h.NockHold),
		BaseHold:        holdToDTO(h.BaseHold),
	}
	for _, b := range h.NockHashchain {
		out.NockHashchain = append(out.NockHashchain, nockBlockToDTO(b))
	}
	for _, b := range h.BaseHashchain {
		out.BaseHashchain = append(out.BaseHashchain, baseBlockBatchToDTO(b))
	}
	for _, e := range h.UnsettledDeposits.Entries() {
		out.UnsettledDeposits = append(out.UnsettledDeposits, depositEntryDTO{NockHash: hexOf(e.A[:]), Deposit: depositToDTO(e.V)})
	}
	for _, e := range h.UnconfirmedSettledDeposits.Entries() {
		out.UnconfirmedSettledDeposits = append(out.UnconfirmedSettledDeposits, depositEntryDTO{NockHash: hexOf(e.A[:]), Deposit: depositToDTO(e.V)})
	}
	for _, e := range h.UnsettledWithdrawals.Entries() {
		out.UnsettledWithdrawals = append(out.UnsettledWithdrawals, withdrawalEntryDTO{BaseHash: hexOf(e.A[:]), Withdrawal: withdrawalToDTO(e.V)})
	}
	for _, e := range h.UnconfirmedSettledWithdrawals.Entries() {
		out.UnconfirmedSettledWithdrawals = append(out.UnconfirmedSettledWithdrawals, withdrawalEntryDTO{BaseHash: hexOf(e.A[:]), Withdrawal: withdrawalToDTO(e.V)})
	}
	return out
}

func hashStateFromDTO(d hashStateDTO) *bridgetypes.HashState {
	h := bridgetypes.NewHashState()
	h.LastNockBlock = hash32(d.LastNockBlock)
	h.NockNextHeight = d.NockNextHeight
	h.LastBaseBlocks = hash32(d.LastBaseBlocks)
	h.BaseNextHeight = d.BaseNextHeight
	h.NockHold = holdFromDTO(d.NockHold)
	h.BaseHold = holdFromDTO(d.BaseHold)

	for _, b := range d.NockHashchain {
		block := nockBlockFromDTO(b)
		h.NockHashchain[block.BlockID] = block
	}
	for _, b := range d.BaseHashchain {
		batch := baseBlockBatchFromDTO(b)
		h.BaseHashchain[batch.Hash()] = batch
	}

	var depositEntries, confirmedDepositEntries []ledger.Entry[bridgetypes.NockHash, bridgetypes.Name, bridgetypes.Deposit]
	for _, e := range d.UnsettledDeposits {
		dep := depositFromDTO(e.Deposit)
		depositEntries = append(depositEntries, ledger.Entry[bridgetypes.NockHash, bridgetypes.Name, bridgetypes.Deposit]{A: hash32(e.NockHash), B: dep.Name, V: dep})
	}
	for _, e := range d.UnconfirmedSettledDeposits {
		dep := depositFromDTO(e.Deposit)
		confirmedDepositEntries = append(confirmedDepositEntries, ledger.Entry[bridgetypes.NockHash, bridgetypes.Name, bridgetypes.Deposit]{A: hash32(e.NockHash), B: dep.Name, V: dep})
	}
	h.UnsettledDeposits = ledger.FromEntries(depositEntries)
	h.UnconfirmedSettledDeposits = ledger.FromEntries(confirmedDepositEntries)

	var unsettledW, confirmedW []ledger.Entry[bridgetypes.BaseHash, string, bridgetypes.Withdrawal]
	for _, e := range d.UnsettledWithdrawals {
		w := withdrawalFromDTO(e.Withdrawal)
		unsettledW = append(unsettledW, ledger.Entry[bridgetypes.BaseHash, string, bridgetypes.Withdrawal]{A: hash32(e.BaseHash), B: bridgetypes.BasedListKey(w.EventID), V: w})
	}
	for _, e := range d.UnconfirmedSettledWithdrawals {
		w := withdrawalFromDTO(e.Withdrawal)
		confirmedW = append(confirmedW, ledger.Entry[bridgetypes.BaseHash, string, bridgetypes.Withdrawal]{A: hash32(e.BaseHash), B: bridgetypes.BasedListKey(w.EventID), V: w})
	}
	h.UnsettledWithdrawals = ledger.FromEntries(unsettledW)
	h.UnconfirmedSettledWithdrawals = ledger.FromEntries(confirmedW)

	return h
}

type stopInfoDTO struct {
	Reason     string `json:"reason"`
	BaseHash   string `json:"base_hash"`
	BaseHeight uint64 `json:"base_height"`
	NockHash   string `json:"nock_hash"`
	NockHeight uint64 `json:"nock_height"`
}

func stopInfoToDTO(s *bridgetypes.StopInfo) *stopInfoDTO {
	if s == nil {
		return nil
	}
	return &stopInfoDTO{
		Reason:     s.Reason,
		BaseHash:   hexOf(s.Base.Hash[:]),
		BaseHeight: s.Base.Height,
		NockHash:   hexOf(s.Nock.Hash[:]),
		NockHeight: s.Nock.Height,
	}
}

func stopInfoFromDTO(d *stopInfoDTO) *bridgetypes.StopInfo {
	if d == nil {
		return nil
	}
	return &bridgetypes.StopInfo{
		Reason: d.Reason,
		Base:   bridgetypes.CheckPoint{Hash: hash32(d.BaseHash), Height: d.BaseHeight},
		Nock:   bridgetypes.CheckPoint{Hash: hash32(d.NockHash), Height: d.NockHeight},
	}
}

type bridgeStateDTO struct {
	Config         nodeConfigDTO        `json:"config"`
	Constants      config.BridgeConstants `json:"constants"`
	HashState      hashStateDTO         `json:"hash_state"`
	NextNonce      uint64               `json:"next_nonce"`
	LastBlock      nockBlockDTO         `json:"last_block"`
	BridgeLockRoot string               `json:"bridge_lock_root"`
	Stop           *stopInfoDTO         `json:"stop,omitempty"`
}

func toDTO(s *bridgetypes.BridgeState) bridgeStateDTO {
	nodeCfg := nodeConfigDTO{
		NodeID:    hexOf(s.Config.NodeID[:]),
		MyEthKey:  hexOf(s.Config.MyEthKey[:]),
		MyNockKey: hexOf(s.Config.MyNockKey[:]),
	}
	for _, n := range s.Config.Nodes {
		nodeCfg.Nodes = append(nodeCfg.Nodes, nodeToDTO(n))
	}
	return bridgeStateDTO{
		Config:         nodeCfg,
		Constants:      s.Constants,
		HashState:      hashStateToDTO(s.HashState),
		NextNonce:      s.NextNonce,
		LastBlock:      nockBlockToDTO(s.LastBlock),
		BridgeLockRoot: hexOf(s.BridgeLockRoot[:]),
		Stop:           stopInfoToDTO(s.Stop),
	}
}

func fromDTO(d bridgeStateDTO) *bridgetypes.BridgeState {
	nodeCfg := config.NodeConfig{
		MyEthKey:  addr20(d.Config.MyEthKey),
		MyNockKey: hash32(d.Config.MyNockKey),
	}
	copy(nodeCfg.NodeID[:], mustHex(d.Config.NodeID))
	for _, n := range d.Config.Nodes {
		nodeCfg.Nodes = append(nodeCfg.Nodes, nodeFromDTO(n))
	}
	return &bridgetypes.BridgeState{
		Config:         nodeCfg,
		Constants:      d.Constants,
		HashState:      hashStateFromDTO(d.HashState),
		NextNonce:      d.NextNonce,
		LastBlock:      nockBlockFromDTO(d.LastBlock),
		BridgeLockRoot: hash32(d.BridgeLockRoot),
		Stop:           stopInfoFromDTO(d.Stop),
	}
}

// SaveState persists s to db under the fixed state key, prefixed with
// stateVersion so LoadState can reject an incompatible snapshot outright
// rather than misdecoding it.
func SaveState(db Database, s *bridgetypes.BridgeState) error {
	payload, err := marshalSnapshot(toDTO(s))
	if err != nil {
		return err
	}
	return db.Put(stateKey, payload)
}

// LoadState reconstructs a BridgeState previously written by SaveState.
// Load/save round-trips byte-identical: re-marshaling the loaded state with
// SaveState produces the same bytes, since the DTO conversion is a pure
// bijection over BridgeState's fields.
func LoadState(db Database) (*bridgetypes.BridgeState, error) {
	payload, err := db.Get(stateKey)
	if err != nil {
		return nil, err
	}
	var dto bridgeStateDTO
	if err := unmarshalSnapshot(payload, &dto); err != nil {
		return nil, err
	}
	return fromDTO(dto), nil
}
