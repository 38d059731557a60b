package client

import (
	"context"
	"net/url"
	"strings"
)

// HarmonicOscillator runs the damped oscillator model.
func (c *Client) HarmonicOscillator(ctx context.Context, req HarmonicRequest) (*HarmonicResult, error) {
	res, err := PostAs[HarmonicResult](ctx, c, "/physics/harmonic-oscillator", req)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// BasicHarmonic runs the oscillator with default parameters over the last 30 days.
func (c *Client) BasicHarmonic(ctx context.Context, symbol string) (*BasicHarmonic, error) {
	res, err := GetAs[BasicHarmonic](ctx, c, "/viewer/harmonic-oscillator/"+url.PathEscape(strings.ToUpper(symbol)))
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// WavePhysics runs the wave interference model.
func (c *Client) WavePhysics(ctx context.Context, req WaveRequest) (*WaveResult, error) {
	res, err := PostAs[WaveResult](ctx, c, "/analysis/wave-physics", req)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Thermodynamics runs the market temperature model.
func (c *Client) Thermodynamics(ctx context.Context, req ThermoRequest) (*ThermoResult, error) {
	res, err := PostAs[ThermoResult](ctx, c, "/analysis/thermodynamics", req)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
