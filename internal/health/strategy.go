package health

// SuccessRateStrategy 成功率(0-100)更新策略
type SuccessRateStrategy interface {
	Update(current float64, success bool) float64
}

// EWMAStrategy 趋势平滑，适合高频场景
type EWMAStrategy struct {
	Alpha float64 // e.g. 0.1
}

func (e *EWMAStrategy) Update(current float64, success bool) float64 {
	var value float64
	if success {
		value = 100
	}
	return e.Alpha*value + (1-e.Alpha)*current
}

// SlidingStrategy 固定步长升降
type SlidingStrategy struct {
	StepUp   float64
	StepDown float64
}

func (s *SlidingStrategy) Update(current float64, success bool) float64 {
	if success {
		return min(current+s.StepUp, 100)
	}
	return max(current-s.StepDown, 0)
}

// DecayStrategy 每次失败按系数衰减，成功不回升
type DecayStrategy struct {
	Factor float64 // e.g. 0.95
}

func (d *DecayStrategy) Update(current float64, success bool) float64 {
	if success {
		return current
	}
	return max(current*d.Factor, 0)
}
