package farming

import (
	"cafichain/core/events"
	"cafichain/crypto"
)

// InitGenesis writes the initial parameters and owner. It refuses to run
// once parameters exist.
func (e *Engine) InitGenesis(owner crypto.Address, params Params) error {
	if err := e.ready(false); err != nil {
		return err
	}
	if e.authority == nil {
		return errNilAuthority
	}
	if owner.IsZero() {
		return ErrZeroAddress
	}
	if err := params.Validate(); err != nil {
		return err
	}
	existing, err := e.state.FarmParams()
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyInitialised
	}
	if err := e.state.PutFarmParams(&params); err != nil {
		return err
	}
	if err := e.state.PutFarmPool(&Pool{}); err != nil {
		return err
	}
	return e.authority.SetOwner(owner)
}

// Params returns the current module parameters.
func (e *Engine) Params() (*Params, error) {
	if err := e.ready(false); err != nil {
		return nil, err
	}
	return e.params()
}

func (e *Engine) setPaused(caller crypto.Address, paused bool) error {
	release, err := e.adminBegin(caller, false)
	if err != nil {
		return err
	}
	defer release()

	params, err := e.params()
	if err != nil {
		return err
	}
	if params.Paused == paused {
		return ErrAlreadyInPauseState
	}
	params.Paused = paused
	if err := e.state.PutFarmParams(params); err != nil {
		return err
	}
	e.emit(events.FarmPaused{Account: caller, Paused: paused})
	return nil
}

// Pause blocks every user mutation except WithdrawRewards.
func (e *Engine) Pause(caller crypto.Address) error { return e.setPaused(caller, true) }

// Unpause lifts a previous Pause.
func (e *Engine) Unpause(caller crypto.Address) error { return e.setPaused(caller, false) }

// TransferOwnership hands the owner role to next.
func (e *Engine) TransferOwnership(caller, next crypto.Address) error {
	release, err := e.adminBegin(caller, false)
	if err != nil {
		return err
	}
	defer release()

	if next.IsZero() {
		return ErrZeroAddress
	}
	if err := e.authority.SetOwner(next); err != nil {
		return err
	}
	e.emit(events.FarmOwnershipTransferred{Previous: caller, Owner: next})
	return nil
}
