package rpc

import (
	"net/http"

	"cafichain/core"
	"cafichain/native/farming"
)

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(tx *core.Tx) (interface{}, error) {
		params, err := tx.Farming.Params()
		if err != nil {
			return nil, err
		}
		out := paramsJSON{
			MaxAPYBps:     params.MaxAPYBps,
			FeeBps:        params.FeeBps,
			RewardToken:   params.RewardToken,
			Paused:        params.Paused,
			ModuleAddress: tx.Farming.ModuleAddress().String(),
		}
		if !params.FeeReceiver.IsZero() {
			out.FeeReceiver = params.FeeReceiver.String()
		}
		if owner, err := tx.State.Owner(); err == nil && !owner.IsZero() {
			out.Owner = owner.String()
		}
		return out, nil
	})
}

func (s *Server) handlePool(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(tx *core.Tx) (interface{}, error) {
		pool, err := tx.Farming.Pool()
		if err != nil {
			return nil, err
		}
		return poolFrom(pool), nil
	})
}

func (s *Server) handlePackages(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(tx *core.Tx) (interface{}, error) {
		pkgs, err := tx.Farming.Packages()
		if err != nil {
			return nil, err
		}
		out := make([]packageJSON, 0, len(pkgs))
		for _, pkg := range pkgs {
			out = append(out, packageFrom(pkg))
		}
		return out, nil
	})
}

func (s *Server) handlePackage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	s.view(w, r, func(tx *core.Tx) (interface{}, error) {
		pkg, err := tx.Farming.Package(id)
		if err != nil {
			return nil, err
		}
		return packageFrom(pkg), nil
	})
}

func (s *Server) handleStakes(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	s.view(w, r, func(tx *core.Tx) (interface{}, error) {
		views, err := tx.Farming.Stakes(owner)
		if err != nil {
			return nil, err
		}
		out := make([]stakeJSON, 0, len(views))
		for _, v := range views {
			out = append(out, stakeFrom(v.Record, v.Reward))
		}
		return out, nil
	})
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	index, ok := pathUint(w, r, "index")
	if !ok {
		return
	}
	s.view(w, r, func(tx *core.Tx) (interface{}, error) {
		v, err := tx.Farming.StakeInfo(owner, index)
		if err != nil {
			return nil, err
		}
		return stakeFrom(v.Record, v.Reward), nil
	})
}

func (s *Server) handleCalculateReward(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	index, ok := pathUint(w, r, "index")
	if !ok {
		return
	}
	s.view(w, r, func(tx *core.Tx) (interface{}, error) {
		reward, err := tx.Farming.CalculateReward(owner, index)
		if err != nil {
			return nil, err
		}
		return amountJSON{Amount: reward.String()}, nil
	})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	owner, ok := pathAddress(w, r, "address")
	if !ok {
		return
	}
	s.view(w, r, func(tx *core.Tx) (interface{}, error) {
		pending, err := tx.Farming.PendingRewards(owner)
		if err != nil {
			return nil, err
		}
		return amountJSON{Amount: amountString(pending)}, nil
	})
}

func (s *Server) handleStakeCreate(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount, "amount")
	if !ok {
		return
	}
	s.execute(w, r, "stake", func(tx *core.Tx) (interface{}, error) {
		record, err := tx.Farming.Stake(tx.Caller, req.PackageID, amount, req.AutoCompound)
		if err != nil {
			return nil, err
		}
		return stakeFrom(record, nil), nil
	})
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	index, ok := pathUint(w, r, "index")
	if !ok {
		return
	}
	s.execute(w, r, "claimReward", func(tx *core.Tx) (interface{}, error) {
		res, err := tx.Farming.ClaimReward(tx.Caller, index)
		if err != nil {
			return nil, err
		}
		return claimFrom(res), nil
	})
}

func (s *Server) handleCompound(w http.ResponseWriter, r *http.Request) {
	index, ok := pathUint(w, r, "index")
	if !ok {
		return
	}
	s.execute(w, r, "compoundReward", func(tx *core.Tx) (interface{}, error) {
		record, err := tx.Farming.CompoundReward(tx.Caller, index)
		if err != nil {
			return nil, err
		}
		return stakeFrom(record, nil), nil
	})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	index, ok := pathUint(w, r, "index")
	if !ok {
		return
	}
	s.execute(w, r, "toggleAutoStake", func(tx *core.Tx) (interface{}, error) {
		enabled, err := tx.Farming.ToggleAutoStake(tx.Caller, index)
		if err != nil {
			return nil, err
		}
		return toggleJSON{AutoCompound: enabled}, nil
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	index, ok := pathUint(w, r, "index")
	if !ok {
		return
	}
	s.execute(w, r, "withdraw", func(tx *core.Tx) (interface{}, error) {
		res, err := tx.Farming.Withdraw(tx.Caller, index)
		if err != nil {
			return nil, err
		}
		return withdrawJSON{Principal: amountString(res.Principal), Reward: amountString(res.Reward)}, nil
	})
}

func (s *Server) handleWithdrawRewards(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, "withdrawRewards", func(tx *core.Tx) (interface{}, error) {
		amount, err := tx.Farming.WithdrawRewards(tx.Caller)
		if err != nil {
			return nil, err
		}
		return amountJSON{Amount: amount.String()}, nil
	})
}

func (s *Server) packageSpec(w http.ResponseWriter, req packageRequest) (farming.PackageSpec, bool) {
	spec := farming.PackageSpec{
		Name:         req.Name,
		StakeToken:   req.StakeToken,
		LockDuration: req.LockDuration,
		APYBps:       req.APYBps,
		Active:       true,
	}
	if req.Active != nil {
		spec.Active = *req.Active
	}
	if req.MinStake != "" {
		minStake, ok := parseAmount(w, req.MinStake, "minStake")
		if !ok {
			return spec, false
		}
		spec.MinStake = minStake
	}
	return spec, true
}

func (s *Server) handleCreatePackage(w http.ResponseWriter, r *http.Request) {
	var req packageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	spec, ok := s.packageSpec(w, req)
	if !ok {
		return
	}
	s.execute(w, r, "createPackage", func(tx *core.Tx) (interface{}, error) {
		pkg, err := tx.Farming.CreatePackage(tx.Caller, spec)
		if err != nil {
			return nil, err
		}
		return packageFrom(pkg), nil
	})
}

func (s *Server) handleUpdatePackage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	var req packageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	spec, ok := s.packageSpec(w, req)
	if !ok {
		return
	}
	s.execute(w, r, "updatePackage", func(tx *core.Tx) (interface{}, error) {
		pkg, err := tx.Farming.UpdatePackage(tx.Caller, id, spec)
		if err != nil {
			return nil, err
		}
		return packageFrom(pkg), nil
	})
}

func (s *Server) handleUpdateAPY(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	var req apyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.execute(w, r, "updateAPY", func(tx *core.Tx) (interface{}, error) {
		pkg, err := tx.Farming.UpdateAPY(tx.Caller, id, req.APYBps)
		if err != nil {
			return nil, err
		}
		return packageFrom(pkg), nil
	})
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUint(w, r, "id")
	if !ok {
		return
	}
	var req activeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.execute(w, r, "setPackageActive", func(tx *core.Tx) (interface{}, error) {
		pkg, err := tx.Farming.SetPackageActive(tx.Caller, id, req.Active)
		if err != nil {
			return nil, err
		}
		return packageFrom(pkg), nil
	})
}

func (s *Server) handleSetMaxAPY(w http.ResponseWriter, r *http.Request) {
	var req maxAPYRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.execute(w, r, "setMaxAPY", func(tx *core.Tx) (interface{}, error) {
		params, err := tx.Farming.SetMaxAPY(tx.Caller, req.MaxAPYBps)
		if err != nil {
			return nil, err
		}
		return paramsJSON{
			MaxAPYBps:     params.MaxAPYBps,
			FeeBps:        params.FeeBps,
			RewardToken:   params.RewardToken,
			Paused:        params.Paused,
			ModuleAddress: tx.Farming.ModuleAddress().String(),
		}, nil
	})
}

func (s *Server) handleSetFees(w http.ResponseWriter, r *http.Request) {
	var req feeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	receiver, ok := parseAddress(w, req.FeeReceiver, "feeReceiver")
	if !ok {
		return
	}
	s.execute(w, r, "setFeeParameters", func(tx *core.Tx) (interface{}, error) {
		params, err := tx.Farming.SetFeeParameters(tx.Caller, req.FeeBps, receiver)
		if err != nil {
			return nil, err
		}
		return paramsJSON{
			MaxAPYBps:     params.MaxAPYBps,
			FeeBps:        params.FeeBps,
			FeeReceiver:   params.FeeReceiver.String(),
			RewardToken:   params.RewardToken,
			Paused:        params.Paused,
			ModuleAddress: tx.Farming.ModuleAddress().String(),
		}, nil
	})
}

func (s *Server) handleFundPool(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount, "amount")
	if !ok {
		return
	}
	s.execute(w, r, "addRewardPoolFunds", func(tx *core.Tx) (interface{}, error) {
		pool, err := tx.Farming.AddRewardPoolFunds(tx.Caller, amount)
		if err != nil {
			return nil, err
		}
		return poolFrom(pool), nil
	})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, "pause", func(tx *core.Tx) (interface{}, error) {
		return nil, tx.Farming.Pause(tx.Caller)
	})
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, "unpause", func(tx *core.Tx) (interface{}, error) {
		return nil, tx.Farming.Unpause(tx.Caller)
	})
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req ownershipRequest
	if !decodeBody(w, r, &req) {
		return
	}
	next, ok := parseAddress(w, req.Owner, "owner")
	if !ok {
		return
	}
	s.execute(w, r, "transferOwnership", func(tx *core.Tx) (interface{}, error) {
		return nil, tx.Farming.TransferOwnership(tx.Caller, next)
	})
}
