package control

import (
	"context"
	"errors"
	"testing"

	"go.viam.com/test"

	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/utils"
)

type fakeControllable struct {
	state    float64
	stateErr error
	cmd      float64
	writes   int
}

func (f *fakeControllable) State(ctx context.Context) ([]float64, error) {
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	return []float64{f.state}, nil
}

func (f *fakeControllable) SetState(ctx context.Context, state []*Signal) error {
	f.writes++
	f.cmd = state[0].GetSignalValueAt(0)
	return nil
}

func TestControlLoop(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx := context.Background()
	cfg := Config{
		Blocks: []BlockConfig{
			{
				Name:      "A",
				Type:      "endpoint",
				DependsOn: []string{"E"},
			},
			{
				Name: "B",
				Type: "sum",
				Attribute: utils.AttributeMap{
					"sum_string": "+-",
				},
				DependsOn: []string{"A", "S1"},
			},
			{
				Name: "S1",
				Type: "constant",
				Attribute: utils.AttributeMap{
					"constant_val": 3.0,
				},
				DependsOn: []string{},
			},
			{
				Name: "C",
				Type: "gain",
				Attribute: utils.AttributeMap{
					"gain": -2.0,
				},
				DependsOn: []string{"B"},
			},
			{
				Name: "D",
				Type: "sum",
				Attribute: utils.AttributeMap{
					"sum_string": "+-",
				},
				DependsOn: []string{"C", "S2"},
			},
			{
				Name: "S2",
				Type: "constant",
				Attribute: utils.AttributeMap{
					"constant_val": 10.0,
				},
				DependsOn: []string{},
			},
			{
				Name: "E",
				Type: "gain",
				Attribute: utils.AttributeMap{
					"gain": -2.0,
				},
				DependsOn: []string{"D"},
			},
		},
		Frequency: 20.0,
	}
	ctr := &fakeControllable{}
	cLoop, err := NewLoop(logger, cfg, ctr)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cLoop, test.ShouldNotBeNil)
	test.That(t, cLoop.Dt().Milliseconds(), test.ShouldEqual, int64(50))

	for i := 0; i < 20; i++ {
		test.That(t, cLoop.Step(ctx), test.ShouldBeNil)
		b, err := cLoop.OutputAt(ctx, "E")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, b[0].GetSignalValueAt(0), test.ShouldEqual, 8.0)
		b, err = cLoop.OutputAt(ctx, "B")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, b[0].GetSignalValueAt(0), test.ShouldEqual, -3.0)
	}
	test.That(t, ctr.cmd, test.ShouldEqual, 8.0)
	test.That(t, ctr.writes, test.ShouldEqual, 20)

	// the measured state flows through the diagram on the same step
	ctr.state = 1
	test.That(t, cLoop.Step(ctx), test.ShouldBeNil)
	test.That(t, ctr.cmd, test.ShouldEqual, 12.0)

	test.That(t, cLoop.UpdateConstantBlock(ctx, "S1", 4.0), test.ShouldBeNil)
	test.That(t, cLoop.Step(ctx), test.ShouldBeNil)
	test.That(t, ctr.cmd, test.ShouldEqual, 8.0)
	test.That(t, cLoop.UpdateConstantBlock(ctx, "C", 4.0), test.ShouldNotBeNil)
	test.That(t, cLoop.UpdateConstantBlock(ctx, "Z", 4.0), test.ShouldNotBeNil)

	names, err := cLoop.BlockList(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, names, test.ShouldResemble, []string{"A", "B", "C", "D", "E", "S1", "S2"})
	freq, err := cLoop.Frequency(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, freq, test.ShouldEqual, 20.0)

	_, err = cLoop.OutputAt(ctx, "nope")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = cLoop.ConfigAt(ctx, "nope")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, cLoop.Reset(ctx), test.ShouldBeNil)
}

func TestControlLoopStateError(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx := context.Background()
	cfg, err := SetupPIDFF(Options{Frequency: 50, PID: PIDConfig{P: 1}, MaxPower: 1})
	test.That(t, err, test.ShouldBeNil)
	ctr := &fakeControllable{stateErr: errors.New("encoder unplugged")}
	cLoop, err := NewLoop(logger, cfg, ctr)
	test.That(t, err, test.ShouldBeNil)

	err = cLoop.Step(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "encoder unplugged")
	test.That(t, ctr.writes, test.ShouldEqual, 0)
}

func TestControlLoopConfigErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	gainBlock := func(name, dep string) BlockConfig {
		return BlockConfig{Name: name, Type: "gain", Attribute: utils.AttributeMap{"gain": 1.0}, DependsOn: []string{dep}}
	}
	constBlock := BlockConfig{Name: "K", Type: "constant", Attribute: utils.AttributeMap{"constant_val": 1.0}}

	for _, tc := range []struct {
		name string
		cfg  Config
		ctr  Controllable
		err  string
	}{
		{"zero frequency", Config{Blocks: []BlockConfig{constBlock}}, nil, "loop frequency"},
		{"too fast", Config{Blocks: []BlockConfig{constBlock}, Frequency: 201}, nil, "loop frequency"},
		{"missing dep", Config{Blocks: []BlockConfig{gainBlock("G", "X")}, Frequency: 10}, nil, "depends on X but it does not exist"},
		{"duplicate", Config{Blocks: []BlockConfig{constBlock, constBlock}, Frequency: 10}, nil, "duplicate block name K"},
		{"cycle", Config{Blocks: []BlockConfig{gainBlock("G", "H"), gainBlock("H", "G")}, Frequency: 10}, nil, "dependency cycle"},
		{
			"endpoint without controllable",
			Config{Blocks: []BlockConfig{constBlock, {Name: "ep", Type: "endpoint", DependsOn: []string{"K"}}}, Frequency: 10},
			nil, "needs a controllable",
		},
		{"unknown type", Config{Blocks: []BlockConfig{{Name: "Q", Type: "quantum"}}, Frequency: 10}, nil, "unsupported block type quantum"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoop(logger, tc.cfg, tc.ctr)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.err)
		})
	}
}

func TestSetupPIDFFPosition(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx := context.Background()
	cfg, err := SetupPIDFF(Options{
		Frequency:      50,
		PID:            PIDConfig{P: 0.002},
		FF:             FeedforwardConfig{KV: 0.0005},
		PositionTarget: true,
		MinPower:       0.1,
		ErrorThreshold: 10,
		MaxPower:       0.75,
	})
	test.That(t, err, test.ShouldBeNil)
	ctr := &fakeControllable{}
	cLoop, err := NewLoop(logger, cfg, ctr)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cLoop.BlockNames(), test.ShouldContain, BlockNameFriction)

	// large error saturates
	test.That(t, cLoop.UpdateConstantBlock(ctx, BlockNameSetPoint, 1000), test.ShouldBeNil)
	test.That(t, cLoop.Step(ctx), test.ShouldBeNil)
	test.That(t, ctr.cmd, test.ShouldEqual, 0.75)

	// small error, static target: no friction bias and no feedforward
	ctr.state = 995
	test.That(t, cLoop.Step(ctx), test.ShouldBeNil)
	test.That(t, ctr.cmd, test.ShouldAlmostEqual, 0.01)

	// the friction bias follows the sign of the command
	test.That(t, cLoop.Reset(ctx), test.ShouldBeNil)
	test.That(t, cLoop.UpdateConstantBlock(ctx, BlockNameSetPoint, -100), test.ShouldBeNil)
	ctr.state = 0
	test.That(t, cLoop.Step(ctx), test.ShouldBeNil)
	test.That(t, ctr.cmd, test.ShouldAlmostEqual, -0.3)

	// a moving target adds velocity feedforward: 10 ticks in 20ms is 500 ticks/s
	ctr.state = -100
	test.That(t, cLoop.UpdateConstantBlock(ctx, BlockNameSetPoint, -90), test.ShouldBeNil)
	test.That(t, cLoop.Step(ctx), test.ShouldBeNil)
	test.That(t, ctr.cmd, test.ShouldAlmostEqual, 0.002*10+0.0005*500)
}

func TestSetupPIDFFScaledSetPoint(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx := context.Background()
	cfg, err := SetupPIDFF(Options{
		Frequency:      50,
		PID:            PIDConfig{P: 0.002},
		PositionTarget: true,
		MaxPower:       1,
		SetPointScale:  100,
	})
	test.That(t, err, test.ShouldBeNil)
	ctr := &fakeControllable{}
	cLoop, err := NewLoop(logger, cfg, ctr)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cLoop.BlockNames(), test.ShouldContain, BlockNameScale)

	// 1.5 set point units are 150 measurement units
	test.That(t, cLoop.UpdateConstantBlock(ctx, BlockNameSetPoint, 1.5), test.ShouldBeNil)
	test.That(t, cLoop.Step(ctx), test.ShouldBeNil)
	test.That(t, ctr.cmd, test.ShouldAlmostEqual, 0.002*150)
	out, err := cLoop.OutputAt(ctx, BlockNameScale)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out[0].GetSignalValueAt(0), test.ShouldAlmostEqual, 150)

	unscaled, err := SetupPIDFF(Options{Frequency: 50, PID: PIDConfig{P: 1}, MaxPower: 1, SetPointScale: 1})
	test.That(t, err, test.ShouldBeNil)
	for _, b := range unscaled.Blocks {
		test.That(t, b.Name, test.ShouldNotEqual, BlockNameScale)
	}
}

func TestSetupPIDFFVelocity(t *testing.T) {
	logger := logging.NewTestLogger(t)
	ctx := context.Background()
	cfg, err := SetupPIDFF(Options{
		Frequency:  50,
		PID:        PIDConfig{P: 0.001},
		FF:         FeedforwardConfig{KV: 0.0002},
		MaxPower:   0.85,
		FilterSize: 2,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Blocks[1].Name, test.ShouldEqual, BlockNameFilter)
	ctr := &fakeControllable{state: 800}
	cLoop, err := NewLoop(logger, cfg, ctr)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cLoop.BlockNames(), test.ShouldNotContain, BlockNameFriction)

	test.That(t, cLoop.UpdateConstantBlock(ctx, BlockNameSetPoint, 1000), test.ShouldBeNil)
	test.That(t, cLoop.Step(ctx), test.ShouldBeNil)
	// first step: filtered 800, FF 0.2, no acceleration term configured
	test.That(t, ctr.cmd, test.ShouldAlmostEqual, 0.001*200+0.0002*1000)

	ctr.state = 1000
	test.That(t, cLoop.Step(ctx), test.ShouldBeNil)
	// filtered measurement is the mean of 800 and 1000
	test.That(t, ctr.cmd, test.ShouldAlmostEqual, 0.001*100+0.0002*1000)

	_, err = SetupPIDFF(Options{Frequency: 50, PID: PIDConfig{P: 1}})
	test.That(t, err, test.ShouldNotBeNil)
}
