package main

import (
	"fmt"

	"github.com/sarchlab/nodestat"
	"github.com/sarchlab/nodestat/layers"
)

// buildNetwork creates one of the demo graphs for an input sample of the
// given shape.
func buildNetwork(name string, inputShape []int) (*nodestat.Node, error) {
	if len(inputShape) != 3 {
		return nil, fmt.Errorf("network %s needs a [C, H, W] input, got %v",
			name, inputShape)
	}

	switch name {
	case "srnet":
		return buildSRNet(inputShape[0], 16, 2, 2), nil
	case "espcn":
		return buildESPCN(inputShape[0], 2), nil
	case "classifier":
		return buildClassifier(inputShape, 10)
	}

	return nil, fmt.Errorf("unknown network %q", name)
}

// buildSRNet creates a small super-resolution network with residual blocks
// and a pixel-shuffle upscaler.
func buildSRNet(channels, features, numBlocks, scale int) *nodestat.Node {
	head := nodestat.NewSequential("head",
		nodestat.NewLeaf("conv", layers.NewConv2d(channels, features, 3,
			layers.WithPadding(1))),
		nodestat.NewLeaf("act", layers.NewPReLU(features)),
	)

	blocks := make([]*nodestat.Node, 0, numBlocks)
	for i := 0; i < numBlocks; i++ {
		body := nodestat.NewSequential("body",
			nodestat.NewLeaf("conv1", layers.NewConv2d(features, features, 3,
				layers.WithPadding(1), layers.WithSeed(int64(2*i+2)))),
			nodestat.NewLeaf("bn1", layers.NewBatchNorm2d(features)),
			nodestat.NewLeaf("act", layers.NewPReLU(features)),
			nodestat.NewLeaf("conv2", layers.NewConv2d(features, features, 3,
				layers.WithPadding(1), layers.WithSeed(int64(2*i+3)))),
			nodestat.NewLeaf("bn2", layers.NewBatchNorm2d(features)),
		)
		blocks = append(blocks, layers.Residual(fmt.Sprintf("block%d", i), body))
	}

	tail := nodestat.NewSequential("tail",
		nodestat.NewLeaf("conv", layers.NewConv2d(features, channels*scale*scale, 3,
			layers.WithPadding(1))),
		nodestat.NewLeaf("shuffle", layers.NewPixelShuffle(scale)),
	)

	return nodestat.NewSequential("srnet",
		head,
		nodestat.NewSequential("body", blocks...),
		tail,
	)
}

// buildESPCN creates an efficient sub-pixel convolution network.
func buildESPCN(channels, scale int) *nodestat.Node {
	return nodestat.NewSequential("espcn",
		nodestat.NewLeaf("conv1", layers.NewConv2d(channels, 64, 5,
			layers.WithPadding(2))),
		nodestat.NewLeaf("tanh1", layers.NewTanh()),
		nodestat.NewLeaf("conv2", layers.NewConv2d(64, 32, 3,
			layers.WithPadding(1), layers.WithSeed(2))),
		nodestat.NewLeaf("tanh2", layers.NewTanh()),
		nodestat.NewLeaf("conv3", layers.NewConv2d(32, channels*scale*scale, 3,
			layers.WithPadding(1), layers.WithSeed(3))),
		nodestat.NewLeaf("shuffle", layers.NewPixelShuffle(scale)),
		nodestat.NewLeaf("sigmoid", layers.NewSigmoid()),
	)
}

// buildClassifier creates a two-stage convolutional classifier.
func buildClassifier(inputShape []int, numClasses int) (*nodestat.Node, error) {
	channels, height, width := inputShape[0], inputShape[1], inputShape[2]
	if height%4 != 0 || width%4 != 0 {
		return nil, fmt.Errorf("classifier needs height and width divisible by 4, got %v",
			inputShape)
	}

	features := 16 * (height / 4) * (width / 4)

	return nodestat.NewSequential("classifier",
		nodestat.NewSequential("stage1",
			nodestat.NewLeaf("conv", layers.NewConv2d(channels, 8, 3,
				layers.WithPadding(1))),
			nodestat.NewLeaf("bn", layers.NewBatchNorm2d(8)),
			nodestat.NewLeaf("relu", layers.NewReLU()),
			nodestat.NewLeaf("pool", layers.NewMaxPool2d(2, 2)),
		),
		nodestat.NewSequential("stage2",
			nodestat.NewLeaf("conv", layers.NewConv2d(8, 16, 3,
				layers.WithPadding(1), layers.WithSeed(2))),
			nodestat.NewLeaf("relu", layers.NewLeakyReLU(0.01)),
			nodestat.NewLeaf("pool", layers.NewAvgPool2d(2, 2)),
		),
		nodestat.NewLeaf("flatten", layers.NewFlatten()),
		nodestat.NewLeaf("fc", layers.NewLinear(features, numClasses)),
	), nil
}
